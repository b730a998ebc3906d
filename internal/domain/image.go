package domain

import "context"

// FileStore abstracts raw byte storage for derived blobs such as cover
// thumbnails. Both backends keep blobs next to their records.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
