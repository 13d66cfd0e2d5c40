package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/observation"
)

// ReadImage loads the photo at path. Unreadable files are validation errors
// because the path came from the user.
func ReadImage(path string) (*observation.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("reading image %s: %w", filepath.Base(path), err)).
			Component("cli").
			Category(errors.CategoryValidation).
			FileContext(path).
			Build()
	}
	return &observation.Image{Filename: filepath.Base(path), Data: data}, nil
}
