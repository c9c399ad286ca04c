package storage

import (
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// Config is the subset of the JSON configuration document that selects and
// parameterizes a storage backend.
type Config struct {
	Kind         string
	Dir          string
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	AzureConn    string
	AccessKey    string
	SecretKey    string
	SecureHTTP   bool
	FetchCommand string
	ListCommand  string
}

// New builds the configured Storage variant. Empty/"local" Kind is the
// default filesystem backend.
func New(c Config) (Storage, error) {
	switch c.Kind {
	case "", "local":
		return NewLocalFS(c.Dir)
	case "s3":
		return NewS3(c.Bucket, c.Prefix, c.Region)
	case "azure":
		return NewAzureBlob(c.AzureConn, c.Bucket, c.Prefix)
	case "minio":
		return NewMinio(c.Endpoint, c.AccessKey, c.SecretKey, c.Bucket, c.Prefix, c.SecureHTTP)
	case "templated":
		return &Templated{Dir: c.Dir, FetchCommand: c.FetchCommand, ListCommand: c.ListCommand}, nil
	default:
		return nil, errors.Wrapf(core.ErrConfig, "unknown storage.kind %q", c.Kind)
	}
}
