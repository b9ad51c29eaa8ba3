package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

// DefaultMaxBytes is the per-file upload limit.
const DefaultMaxBytes = 1 << 20

var allowedExt = map[string]bool{"png": true, "jpg": true, "jpeg": true}

// Uploads implements ports.FileStore.  Stored files are named
// <prefix><uuid>_<label>.<ext> and the returned reference is that key.
type Uploads struct {
	blob     Blob
	prefix   string
	maxBytes int64
}

// NewUploads wraps b.  prefix namespaces the keys (for example "hostel/");
// maxBytes <= 0 selects DefaultMaxBytes.
func NewUploads(b Blob, prefix string, maxBytes int64) *Uploads {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploads{blob: b, prefix: prefix, maxBytes: maxBytes}
}

// Store validates and saves one upload.
func (u *Uploads) Store(ctx context.Context, up ports.Upload, label string) (string, error) {
	ext := extension(up.Filename)
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: %q", ports.ErrInvalidFileType, up.Filename)
	}
	if up.Size > u.maxBytes {
		return "", ports.ErrFileTooLarge
	}
	if up.Body == nil {
		return "", fmt.Errorf("%w: empty upload", ports.ErrInvalidFileType)
	}
	// read one byte past the limit so an understated Size is still caught
	body, err := io.ReadAll(io.LimitReader(up.Body, u.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(body)) > u.maxBytes {
		return "", ports.ErrFileTooLarge
	}
	key := fmt.Sprintf("%s%s_%s.%s", u.prefix, uuid.NewString(), sanitizeLabel(label), ext)
	if _, err := u.blob.Put(ctx, key, bytes.NewReader(body), mime.TypeByExtension("."+ext)); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// Delete releases a stored file.  Missing files are not an error.
func (u *Uploads) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if _, err := u.blob.Delete(ctx, ref); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

// Open returns a stored file for serving.
func Open(ctx context.Context, b Blob, ref string) (Info, io.ReadCloser, error) {
	key, err := cleanKey(ref)
	if err != nil {
		return Info{}, nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return b.Get(ctx, key)
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

func sanitizeLabel(label string) string {
	var b strings.Builder
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
