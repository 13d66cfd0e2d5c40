package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/feedback"
)

func TestReadImage(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "ibex.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0o600))

	img, err := ReadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "ibex.jpg", img.Filename)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, img.Data)
}

func TestReadImage_MissingFileIsValidationError(t *testing.T) {
	t.Parallel()

	_, err := ReadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	failed := Fail(feedback.OpSubmit, err)
	var cmdErr *CommandError
	require.ErrorAs(t, failed, &cmdErr)
	assert.Equal(t, feedback.LevelError, cmdErr.Message.Level)
	assert.Contains(t, cmdErr.Message.Text, "reading image missing.png")
}
