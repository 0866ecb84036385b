package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/edgeprint/pkg/errors"
)

// FileStore stores blobs as files under a root directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir.
// The directory will be created if it doesn't exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create store directory %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Download reads the file at path.
func (s *FileStore) Download(ctx context.Context, path string) ([]byte, error) {
	full, err := s.path(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, notFound(path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read %s", path)
	}
	return data, nil
}

// Upload writes data to path via a temp file and rename, so readers never
// observe a partial blob.
func (s *FileStore) Upload(ctx context.Context, path string, data []byte) error {
	full, err := s.path(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "create directory for %s", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeStorage, err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write %s", path)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write %s", path)
	}
	return nil
}

// List walks the directory and returns matching paths.
func (s *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := errors.ValidatePrefix(prefix); err != nil {
		return nil, err
	}

	var out []string
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return err
		}
		if rel = filepath.ToSlash(rel); strings.HasPrefix(rel, prefix) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list %s", prefix)
	}
	sort.Strings(out)
	return out, nil
}

// Remove deletes every file with the prefix, then prunes empty directories.
func (s *FileStore) Remove(ctx context.Context, prefix string) error {
	if prefix == "" {
		return errors.New(errors.ErrCodeInvalidPath, "refusing to remove the whole store")
	}
	paths, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(p))); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeStorage, err, "remove %s", p)
		}
	}
	if strings.HasSuffix(prefix, "/") {
		_ = os.RemoveAll(filepath.Join(s.dir, filepath.FromSlash(prefix)))
	}
	return nil
}

// Close does nothing for file store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(p string) (string, error) {
	if err := errors.ValidatePath(p); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(p)), nil
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
