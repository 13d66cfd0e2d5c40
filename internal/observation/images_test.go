package observation

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/logger"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
)

func newTestImageStore(t *testing.T, maxSize int64) (*ImageStore, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	store := NewImageStore(fsys, "images", maxSize,
		[]string{"image/jpeg", "image/jpg", "image/png", "image/webp"},
		logger.NewSlogLogger(nil, logger.LogLevelError))
	return store, fsys
}

func TestImageStoreSave(t *testing.T) {
	t.Parallel()
	store, fsys := newTestImageStore(t, 1024)

	path, err := store.Save(context.Background(), Image{Filename: "sparrow.jpg", Data: jpegHeader})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("images", "sparrow.jpg"), path)

	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, jpegHeader, data)
}

func TestImageStoreOverwritesSameName(t *testing.T) {
	t.Parallel()
	store, fsys := newTestImageStore(t, 1024)
	ctx := context.Background()

	_, err := store.Save(ctx, Image{Filename: "bird.png", Data: []byte("first")})
	require.NoError(t, err)
	path, err := store.Save(ctx, Image{Filename: "bird.png", Data: []byte("second")})
	require.NoError(t, err)

	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestImageStoreStripsDirectories(t *testing.T) {
	t.Parallel()
	store, _ := newTestImageStore(t, 1024)

	path, err := store.Save(context.Background(), Image{Filename: `..\..\etc/../secret.png`, Data: pngHeader})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("images", "secret.png"), path)
}

func TestSafeFilenameRejectsEmptyNames(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"", " ", ".", "..", "/", "images/.."} {
		_, err := SafeFilename(name)
		require.Error(t, err, "name %q", name)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
}

func TestImageStoreValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		image       Image
		wantType    string
		wantErrText string
	}{
		{"declared jpeg", Image{ContentType: "image/jpeg", Data: jpegHeader}, "image/jpeg", ""},
		{"declared with params", Image{ContentType: "Image/PNG; charset=binary", Data: pngHeader}, "image/png", ""},
		{"sniffed png", Image{Data: pngHeader}, "image/png", ""},
		{"octet stream sniffed", Image{ContentType: "application/octet-stream", Data: jpegHeader}, "image/jpeg", ""},
		{"text rejected", Image{ContentType: "text/plain", Data: []byte("hello")}, "", "not accepted"},
		{"empty rejected", Image{ContentType: "image/png"}, "", "empty"},
		{"too large", Image{ContentType: "image/png", Data: bytes.Repeat([]byte{1}, 65)}, "", "maximum is 64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, _ := newTestImageStore(t, 64)
			img := tt.image

			err := store.Validate(&img)
			if tt.wantErrText != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrText)
				assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, img.ContentType)
		})
	}
}

func TestImageStoreWriteFailure(t *testing.T) {
	t.Parallel()
	store := NewImageStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "images", 1024,
		[]string{"image/png"}, logger.NewSlogLogger(nil, logger.LogLevelError))

	_, err := store.Save(context.Background(), Image{Filename: "a.png", Data: pngHeader})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryStorage))
}
