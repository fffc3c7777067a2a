package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"jsonpress/internal/services"
)

// FSStore stores payloads as files under a root directory.
type FSStore struct {
	root string
}

// NewFSStore returns a store rooted at dir.
func NewFSStore(dir string) *FSStore {
	return &FSStore{root: dir}
}

// Get reads the payload at the location. Missing files are reported as
// not-found; everything else is a transient I/O failure.
func (s *FSStore) Get(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrTimeout, "blob", "get", "context done", err)
	}
	path, err := s.resolve(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, services.Wrap(services.ErrNotFound, "blob", "get",
			fmt.Sprintf("object %s not found", location), err)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "blob", "get",
			fmt.Sprintf("read object %s", location), err)
	}
	return data, nil
}

// Put writes the payload atomically: a temp file in the target directory is
// renamed into place so readers never observe a partial object.
func (s *FSStore) Put(ctx context.Context, location string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrTimeout, "blob", "put", "context done", err)
	}
	path, err := s.resolve(location)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "blob", "put",
			fmt.Sprintf("create directory for %s", location), err)
	}

	tmp, err := os.CreateTemp(dir, ".jsonpress-*")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "blob", "put",
			fmt.Sprintf("create temp file for %s", location), err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, "blob", "put",
			fmt.Sprintf("write object %s", location), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, "blob", "put",
			fmt.Sprintf("close object %s", location), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, "blob", "put",
			fmt.Sprintf("finalize object %s", location), err)
	}
	return location, nil
}

// resolve maps a location key to an absolute path, rejecting keys that would
// escape the root.
func (s *FSStore) resolve(location string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(location))
	if cleaned == "." || cleaned == "" || filepath.IsAbs(cleaned) ||
		cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrMalformedInput, "blob", "resolve",
			fmt.Sprintf("invalid object location %q", location), nil)
	}
	return filepath.Join(s.root, cleaned), nil
}
