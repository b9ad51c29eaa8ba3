package ports

import (
	"context"
	"errors"
	"io"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

var (
	// ErrInvalidFileType is returned by FileStore.Store for extensions
	// outside the accepted image set.
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrFileTooLarge is returned by FileStore.Store above the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// Upload is one file taken from a request.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// FileStore stores and releases uploaded documents.
type FileStore interface {
	Store(ctx context.Context, up Upload, label string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Notifier delivers a templated message.  delivered is false when the
// message could not be handed over; callers never roll back on it.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) (delivered bool, err error)
}
