package observation

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/logger"
)

// Image is an uploaded photo as received from a client.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageStore writes uploaded images into a flat directory keyed by the
// upload's base filename. A second upload with the same name overwrites the first.
type ImageStore struct {
	fs           afero.Fs
	dir          string
	maxSize      int64
	allowedTypes []string
	log          logger.Logger
}

// NewImageStore returns a store rooted at dir. maxSize and allowedTypes bound
// what Validate accepts.
func NewImageStore(fsys afero.Fs, dir string, maxSize int64, allowedTypes []string, log logger.Logger) *ImageStore {
	if log == nil {
		log = logger.Global().Module("observation")
	}
	return &ImageStore{
		fs:           fsys,
		dir:          dir,
		maxSize:      maxSize,
		allowedTypes: allowedTypes,
		log:          log.Module("images"),
	}
}

// Dir returns the image directory.
func (s *ImageStore) Dir() string { return s.dir }

// Fs returns the filesystem the images are written to.
func (s *ImageStore) Fs() afero.Fs { return s.fs }

// Validate checks the upload's size and type. An empty ContentType is filled
// in by sniffing the data.
func (s *ImageStore) Validate(img *Image) error {
	if len(img.Data) == 0 {
		return validationError("image is empty")
	}
	if s.maxSize > 0 && int64(len(img.Data)) > s.maxSize {
		return validationError(fmt.Sprintf("image is %d bytes, maximum is %d", len(img.Data), s.maxSize))
	}

	contentType := strings.ToLower(strings.TrimSpace(img.ContentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(img.Data)
	}
	if !slices.Contains(s.allowedTypes, contentType) {
		return validationError(fmt.Sprintf("image type %q is not accepted, use one of %s",
			contentType, strings.Join(s.allowedTypes, ", ")))
	}
	img.ContentType = contentType
	return nil
}

// Save writes data to <dir>/<base(filename)> and returns that path.
func (s *ImageStore) Save(ctx context.Context, img Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := SafeFilename(img.Filename)
	if err != nil {
		return "", err
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", s.storageError(err, s.dir)
	}

	target := filepath.Join(s.dir, name)
	if err := afero.WriteFile(s.fs, target, img.Data, 0o644); err != nil {
		return "", s.storageError(err, target)
	}

	s.log.Debug("image stored",
		logger.String("path", target),
		logger.Int("size_bytes", len(img.Data)))
	return target, nil
}

// SafeFilename reduces an uploaded filename to its base name. Names that
// reduce to nothing or to a directory reference are rejected.
func SafeFilename(filename string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	switch base {
	case "", ".", "..", "/":
		return "", validationError(fmt.Sprintf("invalid image filename %q", filename))
	}
	return base, nil
}

func (s *ImageStore) storageError(err error, target string) error {
	s.log.Error("image write failed", logger.String("path", target), logger.Error(err))
	return errors.New(fmt.Errorf("storing image: %w", err)).
		Component("observation").
		Category(errors.CategoryStorage).
		FileContext(target).
		Context("operation", "save_image").
		Build()
}

func validationError(msg string) error {
	return errors.New(errors.NewStd(msg)).
		Component("observation").
		Category(errors.CategoryValidation).
		Build()
}
