package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

// storeDocuments saves the uploads named in fields, in that order, and hands
// every reference to set.  On failure the files already saved are released.
func storeDocuments(ctx context.Context, files ports.FileStore, uploads map[string]ports.Upload, fields []string, set func(field, ref string) bool) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if files == nil {
		return nil, fmt.Errorf("%w: file uploads are not configured", ErrStorage)
	}
	var stored []string
	for _, field := range fields {
		up, ok := uploads[field]
		if !ok {
			continue
		}
		ref, err := files.Store(ctx, up, field)
		if err != nil {
			releaseFiles(ctx, files, zap.NewNop(), stored)
			if errors.Is(err, ports.ErrInvalidFileType) || errors.Is(err, ports.ErrFileTooLarge) {
				return nil, fmt.Errorf("%w: %s: %w", ErrValidation, field, err)
			}
			return nil, fmt.Errorf("%w: store %s: %w", ErrStorage, field, err)
		}
		set(field, ref)
		stored = append(stored, ref)
	}
	return stored, nil
}

// releaseFiles removes stored documents.  Failures are logged and otherwise
// ignored; an orphaned file never blocks a record change.
func releaseFiles(ctx context.Context, files ports.FileStore, log *zap.Logger, refs []string) {
	if files == nil {
		return
	}
	for _, ref := range refs {
		if err := files.Delete(ctx, ref); err != nil {
			log.Warn("release file failed", zap.String("ref", ref), zap.Error(err))
		}
	}
}

// deliver hands n to the notifier and reports whether it was accepted.
func deliver(ctx context.Context, notifier ports.Notifier, log *zap.Logger, n model.Notification) bool {
	if notifier == nil {
		return false
	}
	if n.Recipient == "" {
		log.Warn("notification skipped, no recipient", zap.String("kind", string(n.Kind)))
		return false
	}
	ok, err := notifier.Notify(ctx, n)
	if err != nil {
		log.Warn("notification failed", zap.String("kind", string(n.Kind)), zap.String("to", n.Recipient), zap.Error(err))
		return false
	}
	return ok
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrBookingNotFound) || errors.Is(err, model.ErrAdmissionNotFound)
}
