package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// Failure kinds returned by the services.  Handlers match them with
// errors.Is and translate each into a transport status.
var (
	ErrNotFound          = errors.New("not found")
	ErrBedConflict       = errors.New("bed conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrStorage           = errors.New("storage failure")
	ErrValidation        = errors.New("validation failed")
	ErrDuplicate         = errors.New("already exists")
	ErrUnauthorized      = errors.New("invalid credentials")
)

// BedConflictError names the bed that could not be claimed so the caller can
// ask the applicant to pick another one.
type BedConflictError struct {
	BedLabel string
}

func (e *BedConflictError) Error() string {
	return fmt.Sprintf("bed %s is not available", e.BedLabel)
}

// Is lets errors.Is(err, ErrBedConflict) match.
func (e *BedConflictError) Is(target error) bool { return target == ErrBedConflict }

func conflict(label string) error { return &BedConflictError{BedLabel: label} }

func invalidTransition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// classify maps a store error onto the service taxonomy.  Errors that are
// already classified pass through unchanged.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrBedConflict),
		errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrStorage),
		errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicate), errors.Is(err, ErrUnauthorized):
		return err
	case errors.Is(err, model.ErrEmailExists):
		return fmt.Errorf("%s: %w: %w", op, ErrDuplicate, err)
	case errors.Is(err, model.ErrBedNotFound), errors.Is(err, model.ErrBookingNotFound),
		errors.Is(err, model.ErrAdmissionNotFound), errors.Is(err, model.ErrRoomNotFound),
		errors.Is(err, model.ErrUserNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
}

// Outcome names the result class of err for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBedConflict):
		return "bed_conflict"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "storage_failure"
	}
}
