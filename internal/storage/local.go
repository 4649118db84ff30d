package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend writes uploads to a filesystem directory served by the API
// process under /uploads.
type LocalBackend struct {
	dir     string
	baseURL string
}

// NewLocalBackend creates the upload directory if needed.
func NewLocalBackend(dir, baseURL string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &LocalBackend{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Store writes each file under a generated name. If any write fails the
// files already written in this batch are removed before returning.
func (b *LocalBackend) Store(_ context.Context, files []UploadedFile) ([]StoredObject, error) {
	stored := make([]StoredObject, 0, len(files))
	for _, f := range files {
		name := GenerateFilename(f.Name)
		if err := os.WriteFile(filepath.Join(b.dir, name), f.Data, 0o644); err != nil {
			for _, s := range stored {
				if rmErr := os.Remove(filepath.Join(b.dir, s.Key)); rmErr != nil {
					log.Printf("Failed to clean up partial upload %s: %v", s.Key, rmErr)
				}
			}
			return nil, fmt.Errorf("failed to store %s: %w", f.Name, err)
		}
		stored = append(stored, StoredObject{
			URL: b.baseURL + "/uploads/" + name,
			Key: name,
		})
	}
	return stored, nil
}

// Delete removes a stored file by key, reporting whether it existed.
func (b *LocalBackend) Delete(_ context.Context, key string) bool {
	if key == "" {
		return false
	}
	// Keys are bare filenames; reject anything trying to escape the directory.
	if filepath.Base(key) != key {
		log.Printf("Refusing to delete suspicious storage key %q", key)
		return false
	}
	err := os.Remove(filepath.Join(b.dir, key))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Failed to delete stored file %s: %v", key, err)
		}
		return false
	}
	return true
}

// DeleteMany removes a batch of files, returning how many were deleted.
func (b *LocalBackend) DeleteMany(ctx context.Context, keys []string) int {
	deleted := 0
	for _, key := range keys {
		if b.Delete(ctx, key) {
			deleted++
		}
	}
	return deleted
}
