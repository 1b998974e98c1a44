package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// fsStorage implements Storage on a local filesystem rooted at a single
// directory. It is the default backend and the one the document lifecycle
// guarantees are written against.
type fsStorage struct {
	resolver *Resolver
}

// NewFilesystem creates a filesystem-backed Storage rooted at root.
// The root is provisioned explicitly and idempotently at startup; nothing
// touches the directory tree as an import-time side effect.
func NewFilesystem(root string) (Storage, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("provision storage root %s: %w", root, err)
	}
	res, err := NewResolver(root)
	if err != nil {
		return nil, err
	}
	return &fsStorage{resolver: res}, nil
}

// Put writes the object under key using a staged write: the bytes go to a
// temp file in the root first, then an atomic rename publishes them. A
// half-written file is never visible under its final key.
func (s *fsStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	dst, err := s.resolver.Resolve(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return ObjectInfo{}, fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("write object data: %w", err)
	}
	if err := ctx.Err(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ObjectInfo{}, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("fsync object data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("publish object: %w", err)
	}

	st, err := os.Stat(dst)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat published object: %w", err)
	}
	return ObjectInfo{
		Key:          key,
		Size:         size,
		ContentType:  opt.ContentType,
		LastModified: st.ModTime(),
		Metadata:     opt.Metadata,
	}, nil
}

// Get opens the object for streaming. The caller must close the reader.
func (s *fsStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	path, err := s.resolver.Resolve(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, fmt.Errorf("open %s: %w", key, ErrNotExist)
		}
		return nil, ObjectInfo{}, fmt.Errorf("open %s: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return f, ObjectInfo{Key: key, Size: st.Size(), LastModified: st.ModTime()}, nil
}

// Stat returns object info without opening the content.
func (s *fsStorage) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	path, err := s.resolver.Resolve(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectInfo{}, fmt.Errorf("stat %s: %w", key, ErrNotExist)
		}
		return ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return ObjectInfo{Key: key, Size: st.Size(), LastModified: st.ModTime()}, nil
}

// Delete removes the object. An already-absent object is not an error, so
// retried deletes stay idempotent.
func (s *fsStorage) Delete(ctx context.Context, key string) error {
	path, err := s.resolver.Resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
