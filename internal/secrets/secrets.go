// Package secrets resolves credentials from mounted secret files or from
// values with environment variable references.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/logger"
)

// maxSecretFileSize limits secret file reads; secrets are tokens, not documents
const maxSecretFileSize = 64 * 1024

// Resolver reads secrets through a filesystem so tests can use a memory one.
type Resolver struct {
	fs  afero.Fs
	log logger.Logger
}

// NewResolver returns a Resolver reading from fsys. A nil fsys uses the OS filesystem.
func NewResolver(fsys afero.Fs, log logger.Logger) *Resolver {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if log == nil {
		log = logger.Global().Module("secrets")
	}
	return &Resolver{fs: fsys, log: log}
}

// ExpandString resolves ${VAR} and ${VAR:-default} references in s. A
// reference without a fallback to an unset variable is an error.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missingVars []string
	expanded := os.Expand(s, func(key string) string {
		varName, defaultValue, fallbackProvided := strings.Cut(key, ":-")
		value := os.Getenv(varName)
		if value == "" {
			if fallbackProvided {
				return defaultValue
			}
			missingVars = append(missingVars, varName)
		}
		return value
	})

	if len(missingVars) > 0 {
		return "", configError(fmt.Errorf("missing required environment variable(s): %s", strings.Join(missingVars, ", ")))
	}
	return expanded, nil
}

// ReadFile reads a secret from path, e.g. a Docker secret under /run/secrets.
// Trailing newlines are trimmed and an empty file is an error.
func (r *Resolver) ReadFile(path string) (string, error) {
	if path == "" {
		return "", configError(fmt.Errorf("secret file path is empty"))
	}
	cleanPath := filepath.Clean(path)

	info, err := r.fs.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", configError(fmt.Errorf("secret file not found: %s", cleanPath))
		}
		return "", configError(fmt.Errorf("failed to stat secret file %s: %w", cleanPath, err))
	}
	if !info.Mode().IsRegular() {
		return "", configError(fmt.Errorf("secret path is not a regular file: %s", cleanPath))
	}
	if info.Size() > maxSecretFileSize {
		return "", configError(fmt.Errorf("secret file too large (max %d bytes): %s", maxSecretFileSize, cleanPath))
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		r.log.Warn("secret file is readable by group or others",
			logger.String("path", cleanPath),
			logger.String("perm", fmt.Sprintf("%04o", perm)))
	}

	data, err := afero.ReadFile(r.fs, cleanPath)
	if err != nil {
		return "", configError(fmt.Errorf("failed to read secret file %s: %w", cleanPath, err))
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", configError(fmt.Errorf("secret file is empty: %s", cleanPath))
	}
	return secret, nil
}

// Resolve returns the secret from filePath when set, otherwise value with
// environment references expanded. Both empty yields "".
func (r *Resolver) Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		return r.ReadFile(filePath)
	}
	return ExpandString(value)
}

func configError(err error) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Build()
}
