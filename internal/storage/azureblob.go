package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// AzureBlob is the Azure Blob Storage-backed manifest store variant, used
// when storage.kind == "azure".
type AzureBlob struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzureBlob builds an Azure Blob backend from a connection string.
func NewAzureBlob(connectionString, container, prefix string) (*AzureBlob, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new azure blob client")
	}
	return &AzureBlob{client: client, container: container, prefix: prefix}, nil
}

func (a *AzureBlob) blobName(name string) string {
	if a.prefix == "" {
		return name
	}
	return strings.TrimSuffix(a.prefix, "/") + "/" + name
}

func (a *AzureBlob) Put(ctx context.Context, name string, data []byte) error {
	_, err := a.client.UploadBuffer(ctx, a.container, a.blobName(name), data, nil)
	return errors.Wrapf(err, "azure put %s", name)
}

func (a *AzureBlob) Get(ctx context.Context, name string) ([]byte, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, a.blobName(name), nil)
	if isAzureNotFound(err) {
		return nil, errors.Wrapf(core.ErrNotFound, "%s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "azure get %s", name)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, errors.Wrapf(err, "azure get %s: read body", name)
	}
	return buf.Bytes(), nil
}

func (a *AzureBlob) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	pager := a.client.NewListBlobsFlatPager(a.container, &azblob.ListBlobsFlatOptions{
		Prefix: ptr(a.blobName(prefix)),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "azure list %s", prefix)
		}
		for _, item := range page.Segment.BlobItems {
			name := *item.Name
			if a.prefix != "" {
				name = strings.TrimPrefix(name, strings.TrimSuffix(a.prefix, "/")+"/")
			}
			names = append(names, name)
		}
	}
	return names, nil
}

func (a *AzureBlob) Probe(ctx context.Context, name string) (bool, error) {
	_, err := a.client.ServiceClient().NewContainerClient(a.container).NewBlobClient(a.blobName(name)).GetProperties(ctx, nil)
	if isAzureNotFound(err) {
		return false, nil
	}
	return err == nil, errors.Wrapf(err, "azure stat %s", name)
}

func isAzureNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "BlobNotFound") || strings.Contains(err.Error(), "404")
}

func ptr[T any](v T) *T { return &v }
