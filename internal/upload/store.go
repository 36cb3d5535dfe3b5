package upload

import (
	"context"
	"io"

	"github.com/dmitrijs2005/filedrop/internal/models"
)

// DefaultCacheControlSeconds is the max-age sent with every blob unless
// configured otherwise.
const DefaultCacheControlSeconds = 3600

// PutOptions tune a single blob write.
type PutOptions struct {
	CacheControlSeconds int
	// Upsert overwrites an existing key. When false, writing an existing key
	// fails.
	Upsert      bool
	ContentType string
}

// BlobStore is the object storage the file bytes are written to.
type BlobStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, opts PutOptions) error
	Remove(ctx context.Context, bucket string, keys []string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// MetadataStore persists one record per uploaded file.
type MetadataStore interface {
	Insert(ctx context.Context, rec *models.StorageRecord) error
}
