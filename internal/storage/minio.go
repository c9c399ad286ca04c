package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// Minio is the S3-compatible, on-prem storage variant used when
// storage.kind == "minio" — useful for sites that keep their WAL archive
// and manifests on an on-prem object store rather than AWS S3.
type Minio struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinio builds a Minio backend against endpoint, using static
// credentials (the common on-prem deployment mode).
func NewMinio(endpoint, accessKey, secretKey, bucket, prefix string, secure bool) (*Minio, error) {
	client, err := minio.New(endpoint, accessKey, secretKey, secure)
	if err != nil {
		return nil, errors.Wrap(err, "new minio client")
	}
	return &Minio{client: client, bucket: bucket, prefix: prefix}, nil
}

func (m *Minio) object(name string) string {
	if m.prefix == "" {
		return name
	}
	return strings.TrimSuffix(m.prefix, "/") + "/" + name
}

func (m *Minio) Put(_ context.Context, name string, data []byte) error {
	_, err := m.client.PutObject(m.bucket, m.object(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return errors.Wrapf(err, "minio put %s", name)
}

func (m *Minio) Get(_ context.Context, name string) ([]byte, error) {
	obj, err := m.client.GetObject(m.bucket, m.object(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "minio get %s", name)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if isMinioNotFound(err) {
		return nil, errors.Wrapf(core.ErrNotFound, "%s", name)
	}
	return b, errors.Wrapf(err, "minio get %s: read", name)
}

func (m *Minio) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	doneCh := make(chan struct{})
	defer close(doneCh)

	for obj := range m.client.ListObjects(m.bucket, m.object(prefix), true, doneCh) {
		if obj.Err != nil {
			return nil, errors.Wrapf(obj.Err, "minio list %s", prefix)
		}
		name := obj.Key
		if m.prefix != "" {
			name = strings.TrimPrefix(name, strings.TrimSuffix(m.prefix, "/")+"/")
		}
		names = append(names, name)

		select {
		case <-ctx.Done():
			return names, ctx.Err()
		default:
		}
	}
	return names, nil
}

func (m *Minio) Probe(_ context.Context, name string) (bool, error) {
	_, err := m.client.StatObject(m.bucket, m.object(name), minio.StatObjectOptions{})
	if isMinioNotFound(err) {
		return false, nil
	}
	return err == nil, errors.Wrapf(err, "minio stat %s", name)
}

func isMinioNotFound(err error) bool {
	if err == nil {
		return false
	}
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
