// Package recyclebin decides what a soft-deleted record looks like from the
// trash view: whether it is still listed and whether it may be purged.
package recyclebin

import "time"

// DefaultRetention is how long a soft-deleted record stays restorable.
const DefaultRetention = 30 * 24 * time.Hour

// Policy is the retention rule.  The zero value uses DefaultRetention.
type Policy struct {
	Retention time.Duration
}

// New returns a Policy with the given retention, falling back to the default
// for non-positive values.
func New(retention time.Duration) Policy {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return Policy{Retention: retention}
}

// Verdict is the outcome of evaluating one record.
type Verdict struct {
	Visible          bool // listed in the trash view
	EligibleForPurge bool // may be erased by cleanup
}

func (p Policy) retention() time.Duration {
	if p.Retention <= 0 {
		return DefaultRetention
	}
	return p.Retention
}

// Evaluate classifies a record.  Active records are neither visible nor
// purgeable.  A deleted record without a timestamp stays visible and is never
// purged automatically.
func (p Policy) Evaluate(isDeleted bool, deletedAt *time.Time, now time.Time) Verdict {
	if !isDeleted {
		return Verdict{}
	}
	if deletedAt == nil {
		return Verdict{Visible: true}
	}
	expired := now.Sub(*deletedAt) >= p.retention()
	return Verdict{Visible: !expired, EligibleForPurge: expired}
}

// Cutoff is the deletion time at or before which records are purgeable.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.retention())
}
