// Package storage keeps uploaded applicant documents.  Objects live in a
// Blob backend (local filesystem, S3 or process memory) and Uploads layers
// the accepted-type and size rules on top of it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Driver identifies a blob backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ErrNotFound is returned for keys that hold no object.
var ErrNotFound = errors.New("blob not found")

// Info describes a stored object.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Blob is the minimal object store the uploads layer needs.  Put fails when
// the key already exists; Delete reports whether anything was removed.
type Blob interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	Driver() Driver
}

// cleanKey rejects keys that could escape the store root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return "", fmt.Errorf("empty key")
	case strings.Contains(key, ".."):
		return "", fmt.Errorf("invalid key %q", key)
	case strings.HasPrefix(key, "/"), strings.Contains(key, "\\"):
		return "", fmt.Errorf("invalid key %q", key)
	}
	return key, nil
}
