package supabase

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	storage "github.com/supabase-community/storage-go"

	"reality-studio-backend/internal/store"
)

// StorageClient uploads generated media to a public Supabase Storage bucket.
type StorageClient struct {
	// storage-go keeps upload options in shared client headers.
	mu      sync.Mutex
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey, bucket string) *StorageClient {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	return &StorageClient{
		client:  storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil),
		bucket:  bucket,
		baseURL: baseURL,
	}
}

var _ store.MediaStore = (*StorageClient)(nil)

// Put uploads data at path, overwriting any object already there, and
// returns its public URL.
func (s *StorageClient) Put(_ context.Context, path string, data []byte, contentType string) (string, error) {
	upsert := true
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return s.PublicURL(path), nil
}

func (s *StorageClient) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, path)
}
