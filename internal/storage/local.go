package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"lamin/internal/fileutil"
)

// Local stores objects in a directory tree.
type Local struct {
	basePath string
}

// NewLocal returns a backend rooted at basePath, creating it if needed.
func NewLocal(basePath string) (*Local, error) {
	if basePath == "" {
		return nil, errors.New("local base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{basePath: basePath}, nil
}

func (l *Local) fullPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(key, "/")))
	if clean == "." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(l.basePath, clean), nil
}

func (l *Local) Put(_ context.Context, key string, r io.Reader) error {
	target, err := l.fullPath(key)
	if err != nil {
		return err
	}
	if _, err := fileutil.WriteAtomic(target, r, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (l *Local) PutFile(_ context.Context, key, localPath string) error {
	target, err := l.fullPath(key)
	if err != nil {
		return err
	}
	if err := fileutil.CopyFileVerified(localPath, target); err != nil {
		return fmt.Errorf("copy %s: %w", key, err)
	}
	return nil
}

func (l *Local) Get(_ context.Context, key string, w io.Writer) error {
	target, err := l.fullPath(key)
	if err != nil {
		return err
	}
	f, err := os.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func (l *Local) Exists(_ context.Context, key string) (bool, error) {
	target, err := l.fullPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (l *Local) Delete(_ context.Context, key string) error {
	target, err := l.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) Provider() Provider { return ProviderLocal }

func (l *Local) Root() string { return l.basePath }

func (l *Local) Close() error { return nil }
