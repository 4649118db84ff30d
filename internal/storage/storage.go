// Package storage persists uploaded product images behind a pluggable
// backend. Two backends exist: local filesystem and S3-compatible object
// storage. The backend is chosen once at process start and injected into the
// services that need it.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopapi/internal/apperrors"
)

// Upload limits, matching the public API contract.
const (
	MaxFiles    = 5
	MaxFileSize = 5 * 1024 * 1024
	FileField   = "images"
)

// Typed intake errors. Each rejection cause stays distinguishable.
var (
	ErrTooManyFiles = apperrors.BadRequest(fmt.Sprintf("A maximum of %d images can be uploaded", MaxFiles))
	ErrFileTooLarge = apperrors.BadRequest("File size exceeds the 5MB limit")
	ErrWrongField   = apperrors.BadRequest(`Unexpected file field. Use "images" as the field name`)
	ErrWrongType    = apperrors.BadRequest("Only image files are allowed (JPEG, PNG, GIF, WebP)")
)

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UploadedFile is a validated, fully buffered upload.
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// StoredObject identifies a persisted file: the public URL handed to clients
// and the backend-specific key used for later deletion.
type StoredObject struct {
	URL string
	Key string
}

// Backend is the storage strategy contract. Delete reports whether the file
// was actually removed; DeleteMany returns the number removed. Neither
// returns an error: deletions are best-effort by design and callers only log.
type Backend interface {
	Store(ctx context.Context, files []UploadedFile) ([]StoredObject, error)
	Delete(ctx context.Context, key string) bool
	DeleteMany(ctx context.Context, keys []string) int
}

// FilesFromForm validates and buffers the image files of a multipart form.
// A nil form or a form without files yields an empty batch.
func FilesFromForm(form *multipart.Form) ([]UploadedFile, error) {
	if form == nil || len(form.File) == 0 {
		return nil, nil
	}
	for field := range form.File {
		if field != FileField {
			return nil, ErrWrongField
		}
	}
	headers := form.File[FileField]
	if len(headers) > MaxFiles {
		return nil, ErrTooManyFiles
	}

	files := make([]UploadedFile, 0, len(headers))
	for _, h := range headers {
		if h.Size > MaxFileSize {
			return nil, ErrFileTooLarge
		}
		contentType := h.Header.Get("Content-Type")
		if !allowedMimeTypes[contentType] {
			return nil, ErrWrongType
		}
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file %s: %w", h.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read uploaded file %s: %w", h.Filename, err)
		}
		if len(data) > MaxFileSize {
			return nil, ErrFileTooLarge
		}
		files = append(files, UploadedFile{
			Name:        h.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}
	return files, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// GenerateFilename builds a collision-resistant stored name from the original
// basename: timestamp, random suffix, sanitized basename, extension kept.
func GenerateFilename(original string) string {
	ext := filepath.Ext(original)
	base := strings.TrimSuffix(filepath.Base(original), ext)
	safe := unsafeChars.ReplaceAllString(base, "-")
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("product-%d-%s-%s%s", time.Now().UnixMilli(), suffix, safe, ext)
}
