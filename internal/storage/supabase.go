package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseOptions configures a SupabaseStore.
type SupabaseOptions struct {
	BaseURL    string
	ServiceKey string
	Bucket     string
}

// SupabaseStore persists images through the Supabase storage API. Objects
// live in a public bucket; the returned URL is served directly by the
// storage service.
type SupabaseStore struct {
	client  *storage_go.Client
	baseURL string
	bucket  string
}

// NewSupabaseStore constructs the store. The bucket must exist and allow
// public reads.
func NewSupabaseStore(opts SupabaseOptions) (*SupabaseStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("storage: supabase base url is required")
	}
	serviceKey := strings.TrimSpace(opts.ServiceKey)
	if serviceKey == "" {
		return nil, errors.New("storage: supabase service key is required")
	}
	bucket := opts.Bucket
	if bucket == "" {
		bucket = "plaques"
	}
	return &SupabaseStore{
		client:  storage_go.NewClient(baseURL+"/storage/v1", serviceKey, nil),
		baseURL: baseURL,
		bucket:  bucket,
	}, nil
}

// Upload stores the bytes under the given key and returns the public URL.
func (s *SupabaseStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := true
	_, err = s.client.UploadFile(s.bucket, cleanKey, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload object: %w", err)
	}
	return s.PublicURL(cleanKey), nil
}

// Download fetches stored bytes by the URL Upload returned. Bare storage
// keys are accepted as well.
func (s *SupabaseStore) Download(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.client.DownloadFile(s.bucket, s.keyFromURL(url))
	if err != nil {
		return nil, fmt.Errorf("storage: download object: %w", err)
	}
	return data, nil
}

// PublicURL returns the public retrieval URL for a storage key.
func (s *SupabaseStore) PublicURL(key string) string {
	return s.client.GetPublicUrl(s.bucket, key).SignedURL
}

func (s *SupabaseStore) keyFromURL(url string) string {
	prefix := fmt.Sprintf("%s/storage/v1/object/public/%s/", s.baseURL, s.bucket)
	if strings.HasPrefix(url, prefix) {
		return strings.TrimPrefix(url, prefix)
	}
	return strings.TrimLeft(url, "/")
}
