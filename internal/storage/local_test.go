package storage_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shopapi/internal/storage"

	"github.com/stretchr/testify/assert"
)

func TestGenerateFilename(t *testing.T) {
	name := storage.GenerateFilename("My Photo (1).jpg")
	assert.True(t, strings.HasPrefix(name, "product-"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))
	assert.Contains(t, name, "My-Photo--1-")
	assert.NotContains(t, name, " ")
	assert.NotContains(t, name, "(")

	// Same input never collides.
	assert.NotEqual(t, storage.GenerateFilename("a.png"), storage.GenerateFilename("a.png"))
}

// buildForm assembles a multipart form with image parts under the given field
// name. Each part carries an explicit image content type.
func buildForm(t *testing.T, field string, files map[string][]byte) *multipart.Form {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
		header.Set("Content-Type", contentTypeFor(name))
		part, err := w.CreatePart(header)
		assert.NoError(t, err)
		_, err = part.Write(data)
		assert.NoError(t, err)
	}
	assert.NoError(t, w.Close())

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(32 << 20)
	assert.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form
}

func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".txt":
		return "text/plain"
	default:
		return "image/jpeg"
	}
}

func TestFilesFromForm(t *testing.T) {
	form := buildForm(t, storage.FileField, map[string][]byte{
		"front.jpg": []byte("jpeg-bytes"),
		"back.png":  []byte("png-bytes"),
	})

	files, err := storage.FilesFromForm(form)
	assert.NoError(t, err)
	assert.Len(t, files, 2)
	for _, f := range files {
		assert.NotEmpty(t, f.Name)
		assert.NotEmpty(t, f.ContentType)
		assert.NotEmpty(t, f.Data)
	}
}

func TestFilesFromFormNilForm(t *testing.T) {
	files, err := storage.FilesFromForm(nil)
	assert.NoError(t, err)
	assert.Empty(t, files)
}

func TestFilesFromFormRejectsWrongField(t *testing.T) {
	form := buildForm(t, "photos", map[string][]byte{"a.jpg": []byte("x")})
	_, err := storage.FilesFromForm(form)
	assert.ErrorIs(t, err, storage.ErrWrongField)
}

func TestFilesFromFormRejectsTooMany(t *testing.T) {
	files := map[string][]byte{}
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg"} {
		files[name] = []byte("x")
	}
	form := buildForm(t, storage.FileField, files)
	_, err := storage.FilesFromForm(form)
	assert.ErrorIs(t, err, storage.ErrTooManyFiles)
}

func TestFilesFromFormRejectsNonImage(t *testing.T) {
	form := buildForm(t, storage.FileField, map[string][]byte{"notes.txt": []byte("hello")})
	_, err := storage.FilesFromForm(form)
	assert.ErrorIs(t, err, storage.ErrWrongType)
}

func TestLocalBackendStoreAndDelete(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewLocalBackend(dir, "http://localhost:8080/")
	assert.NoError(t, err)

	stored, err := backend.Store(context.Background(), []storage.UploadedFile{
		{Name: "front.jpg", ContentType: "image/jpeg", Data: []byte("front")},
		{Name: "back.png", ContentType: "image/png", Data: []byte("back")},
	})
	assert.NoError(t, err)
	assert.Len(t, stored, 2)

	for _, obj := range stored {
		assert.True(t, strings.HasPrefix(obj.URL, "http://localhost:8080/uploads/"))
		data, err := os.ReadFile(filepath.Join(dir, obj.Key))
		assert.NoError(t, err)
		assert.NotEmpty(t, data)
	}

	assert.True(t, backend.Delete(context.Background(), stored[0].Key))
	_, err = os.Stat(filepath.Join(dir, stored[0].Key))
	assert.True(t, os.IsNotExist(err))

	// Deleting an already-gone file reports false, never errors.
	assert.False(t, backend.Delete(context.Background(), stored[0].Key))
}

func TestLocalBackendDeleteRefusesPathTraversal(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewLocalBackend(dir, "http://localhost:8080")
	assert.NoError(t, err)

	assert.False(t, backend.Delete(context.Background(), "../outside.jpg"))
	assert.False(t, backend.Delete(context.Background(), "/etc/passwd"))
	assert.False(t, backend.Delete(context.Background(), ""))
}

func TestLocalBackendDeleteMany(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewLocalBackend(dir, "http://localhost:8080")
	assert.NoError(t, err)

	stored, err := backend.Store(context.Background(), []storage.UploadedFile{
		{Name: "a.jpg", ContentType: "image/jpeg", Data: []byte("a")},
		{Name: "b.jpg", ContentType: "image/jpeg", Data: []byte("b")},
	})
	assert.NoError(t, err)

	keys := []string{stored[0].Key, stored[1].Key, "never-stored.jpg"}
	assert.Equal(t, 2, backend.DeleteMany(context.Background(), keys))
}
