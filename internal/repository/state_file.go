package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// FileStateRepo keeps one file per key inside dir. Writes go through a
// temporary file and a rename so a crash never leaves a half-written value.
type FileStateRepo struct {
	dir string
}

func NewFileStateRepo(dir string) (*FileStateRepo, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &FileStateRepo{dir: dir}, nil
}

func (r *FileStateRepo) path(key string) string {
	return filepath.Join(r.dir, url.PathEscape(key)+".json")
}

func (r *FileStateRepo) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(r.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (r *FileStateRepo) Set(ctx context.Context, key, value string) error {
	tmp, err := os.CreateTemp(r.dir, ".state-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path(key))
}

func (r *FileStateRepo) Delete(ctx context.Context, key string) error {
	err := os.Remove(r.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
