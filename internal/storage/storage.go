package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage contains the file storage abstraction and its backends.
// The default backend writes to a single local storage root; an
// S3-compatible backend is available for deployments that outgrow one node.
// All backends address objects by a system-generated, root-relative key
// (the storage pointer) and stream content; nothing is buffered whole.

// ErrNotExist is returned by Get and Stat when the key does not resolve to
// a stored object. Backends map their native not-found errors to it so
// callers can distinguish "absent" from real failures.
var ErrNotExist = errors.New("storage: object does not exist")

// PutObjectOptions define optional parameters for storing objects.
// Size should be the exact number of bytes if known; set -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the backend-neutral store interface. Implementations must be
// safe for concurrent use.
//
// Contract highlights:
//   - Put stages the write so a half-written object is never visible under
//     its final key.
//   - Delete of an absent key returns nil (idempotent).
//   - Get and Stat return ErrNotExist (possibly wrapped) for absent keys.
type Storage interface {
	// Put stores an object under the given key from the reader.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader with its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Stat returns object info without opening the content.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes an object by key. Absent keys are not an error.
	Delete(ctx context.Context, key string) error
}
