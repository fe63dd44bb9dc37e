package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/docqa-client/internal/core/domain"
)

// Storage reads user-selected files. Relative paths resolve against basePath.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working dir: %w", err)
		}
		basePath = wd
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("stat base dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path %q is not a directory", basePath)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) Resolve(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.basePath, path)
}

// Open returns the file contents and its base name.
func (s *Storage) Open(_ context.Context, path string) (io.ReadCloser, string, error) {
	resolved, err := s.statFile(path)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(resolved)
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrMissingFile, "open file", err)
	}
	return f, filepath.Base(resolved), nil
}

func (s *Storage) statFile(path string) (string, error) {
	resolved := s.Resolve(path)
	if resolved == "" {
		return "", domain.WrapError(domain.ErrMissingFile, "open file", errors.New("empty path"))
	}
	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.WrapError(domain.ErrMissingFile, "open file", fmt.Errorf("%s does not exist", resolved))
		}
		return "", domain.WrapError(domain.ErrMissingFile, "open file", err)
	}
	if info.IsDir() {
		return "", domain.WrapError(domain.ErrMissingFile, "open file", fmt.Errorf("%s is a directory", resolved))
	}
	return resolved, nil
}
