package storage

import "context"

// BlobStore abstracts durable image storage. Upload persists bytes under a
// key and returns the public retrieval URL; Download fetches previously
// stored bytes by that URL. Neither operation retries internally.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}
