package ports

import (
	"context"
	"time"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// AdmissionStore persists school admissions.
type AdmissionStore interface {
	Insert(ctx context.Context, a *model.Admission) (int64, error)
	GetByID(ctx context.Context, id int64) (model.Admission, error)
	UpdateFields(ctx context.Context, id int64, patch model.AdmissionPatch) error
	// List returns active admissions, or soft-deleted ones when deleted is
	// true, newest first.
	List(ctx context.Context, deleted bool) ([]model.Admission, error)
	// SetDeleted moves an admission into or out of the recycle bin, stamping
	// at as the deletion and update time.  It reports false when the
	// admission is missing or already in the requested state.
	SetDeleted(ctx context.Context, id int64, deleted bool, at time.Time) (bool, error)
	HardDelete(ctx context.Context, id int64) error
	// PurgeDeleted erases an admission only while it is still soft-deleted
	// at or before cutoff, and reports whether a row went.
	PurgeDeleted(ctx context.Context, id int64, cutoff time.Time) (bool, error)
}
