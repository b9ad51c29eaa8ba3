// Package service holds the application logic.  BedLifecycle coordinates
// the booking and inventory stores so that a bed's status always follows
// from the bookings that reference it; AdmissionService runs the school
// intake workflow.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/recyclebin"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

// Recorder receives lifecycle telemetry.
type Recorder interface {
	ObserveOperation(op, outcome string)
	SetBedCounts(counts map[model.BedStatus]int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string)        {}
func (nopRecorder) SetBedCounts(map[model.BedStatus]int) {}

// Option customises a BedLifecycle or AdmissionService.
type Option func(*options)

type options struct {
	now    func() time.Time
	policy recyclebin.Policy
	rec    Recorder
}

func defaultOptions() options {
	return options{now: time.Now, policy: recyclebin.New(0), rec: nopRecorder{}}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithRecyclePolicy sets the recycle bin retention rule.
func WithRecyclePolicy(p recyclebin.Policy) Option { return func(o *options) { o.policy = p } }

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.rec = r
		}
	}
}

// BedLifecycle is the only writer of booking status, bed assignment, the
// soft-delete flag and bed status.  Each mutating call is one store
// transaction.  It performs no authorization checks; admin-only operations
// must be gated by the caller.
type BedLifecycle struct {
	store    ports.Store
	files    ports.FileStore
	notifier ports.Notifier
	log      *zap.Logger
	options
}

// NewBedLifecycle wires the manager.  files and notifier may be nil, in which
// case uploads are rejected and notifications report not delivered.
func NewBedLifecycle(store ports.Store, files ports.FileStore, notifier ports.Notifier, log *zap.Logger, opts ...Option) *BedLifecycle {
	if log == nil {
		log = zap.NewNop()
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &BedLifecycle{store: store, files: files, notifier: notifier, log: log, options: o}
}

// NewBooking is the public submission payload.
type NewBooking struct {
	Applicant model.Applicant
	BedLabel  string
	Documents model.BookingDocuments
}

// BookingUpdate is an administrative edit.  An empty BedLabel keeps the
// current assignment; Documents carries only the replaced files.
type BookingUpdate struct {
	Applicant *model.Applicant
	Documents *model.BookingDocuments
	BedLabel  string
}

// VerifyResult reports a verification together with the advisory
// notification outcome.
type VerifyResult struct {
	Booking               model.Booking `json:"booking"`
	NotificationDelivered bool          `json:"notification_delivered"`
}

// RestoreResult reports whether the restored booking got its bed back.
// NeedsReconciliation is set when a verified booking came back while its
// bed was held by somebody else.
type RestoreResult struct {
	Booking             model.Booking `json:"booking"`
	BedReclaimed        bool          `json:"bed_reclaimed"`
	NeedsReconciliation bool          `json:"needs_reconciliation"`
}

func (l *BedLifecycle) observe(op string, err *error) {
	l.rec.ObserveOperation(op, Outcome(*err))
}

// CreateBooking reserves a free bed and records a pending booking for it.
// A bed that is not free yields a *BedConflictError naming the bed.
func (l *BedLifecycle) CreateBooking(ctx context.Context, in NewBooking) (id int64, err error) {
	defer l.observe("create", &err)

	label := strings.TrimSpace(in.BedLabel)
	if label == "" {
		return 0, validation("bed_id is required")
	}
	if strings.TrimSpace(in.Applicant.StudentName) == "" {
		return 0, validation("student_name is required")
	}
	now := l.now().UTC()

	err = l.store.WithinTx(ctx, func(tx ports.Tx) error {
		// the conditional write is the arbiter between concurrent submissions
		ok, err := tx.Inventory().CompareAndSetBedStatus(ctx, label, model.BedReserved, model.BedFree)
		if err != nil {
			return fmt.Errorf("reserve bed %s: %w", label, err)
		}
		if !ok {
			return conflict(label)
		}
		b := model.Booking{
			Applicant: in.Applicant,
			Documents: in.Documents,
			BedLabel:  label,
			Status:    model.BookingPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		id, err = tx.Bookings().Insert(ctx, &b)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, classify("create booking", err)
	}
	l.log.Info("booking created", zap.Int64("booking_id", id), zap.String("bed", label))
	return id, nil
}

// SubmitBooking stores the uploaded documents and then creates the booking.
// Files stored for a submission that fails are released again.
func (l *BedLifecycle) SubmitBooking(ctx context.Context, in NewBooking, uploads map[string]ports.Upload) (int64, error) {
	stored, err := storeDocuments(ctx, l.files, uploads, model.BookingDocumentFields, in.Documents.Set)
	if err != nil {
		return 0, err
	}
	id, err := l.CreateBooking(ctx, in)
	if err != nil {
		releaseFiles(ctx, l.files, l.log, stored)
		return 0, err
	}
	return id, nil
}

// VerifyBooking moves a pending booking to Verified and occupies its bed.
// It fails with a *BedConflictError when the bed is already occupied, in
// which case nothing changes.  The notification is sent after commit and
// its failure is only reported through NotificationDelivered.
func (l *BedLifecycle) VerifyBooking(ctx context.Context, id int64) (res VerifyResult, err error) {
	defer l.observe("verify", &err)

	now := l.now().UTC()
	var b model.Booking
	err = l.store.WithinTx(ctx, func(tx ports.Tx) error {
		var err error
		b, err = tx.Bookings().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load booking %d: %w", id, err)
		}
		switch {
		case b.IsDeleted:
			return invalidTransition("booking %d is in the recycle bin", id)
		case b.Status != model.BookingPending:
			return invalidTransition("booking %d is %s, not %s", id, b.Status, model.BookingPending)
		case b.BedLabel == "":
			return invalidTransition("booking %d has no bed assigned", id)
		}

		ok, err := tx.Inventory().CompareAndSetBedStatus(ctx, b.BedLabel, model.BedOccupied, model.BedFree, model.BedReserved)
		if err != nil {
			return fmt.Errorf("occupy bed %s: %w", b.BedLabel, err)
		}
		if !ok {
			return conflict(b.BedLabel)
		}

		status := model.BookingVerified
		if err := tx.Bookings().UpdateFields(ctx, id, model.BookingPatch{Status: &status, UpdatedAt: now}); err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}
		b.Status, b.UpdatedAt = status, now
		return nil
	})
	if err != nil {
		return VerifyResult{}, classify("verify booking", err)
	}
	l.log.Info("booking verified", zap.Int64("booking_id", id), zap.String("bed", b.BedLabel))

	res = VerifyResult{Booking: b}
	res.NotificationDelivered = deliver(ctx, l.notifier, l.log, model.BookingVerifiedNotification(b))
	return res, nil
}

// RejectBooking marks a booking Rejected and releases its bed.  Rejecting
// twice is an invalid transition.
func (l *BedLifecycle) RejectBooking(ctx context.Context, id int64) (b model.Booking, err error) {
	defer l.observe("reject", &err)

	now := l.now().UTC()
	err = l.store.WithinTx(ctx, func(tx ports.Tx) error {
		var err error
		b, err = tx.Bookings().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load booking %d: %w", id, err)
		}
		if b.IsDeleted {
			return invalidTransition("booking %d is in the recycle bin", id)
		}
		if b.Status == model.BookingRejected {
			return invalidTransition("booking %d is already rejected", id)
		}

		status := model.BookingRejected
		if err := tx.Bookings().UpdateFields(ctx, id, model.BookingPatch{Status: &status, UpdatedAt: now}); err != nil {
			return fmt.Errorf("mark rejected: %w", err)
		}
		b.Status, b.UpdatedAt = status, now
		return releaseBed(ctx, tx, b.BedLabel)
	})
	if err != nil {
		return model.Booking{}, classify("reject booking", err)
	}
	l.log.Info("booking rejected", zap.Int64("booking_id", id))
	return b, nil
}

// SoftDelete moves a booking to the recycle bin and releases its bed.  The
// booking keeps its status so Restore can rebuild the claim.
func (l *BedLifecycle) SoftDelete(ctx context.Context, id int64) (b model.Booking, err error) {
	defer l.observe("soft_delete", &err)

	now := l.now().UTC()
	err = l.store.WithinTx(ctx, func(tx ports.Tx) error {
		var err error
		b, err = tx.Bookings().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load booking %d: %w", id, err)
		}
		if b.IsDeleted {
			return invalidTransition("booking %d is already in the recycle bin", id)
		}

		deleted := true
		patch := model.BookingPatch{Deleted: &deleted, DeletedAt: now, UpdatedAt: now}
		if err := tx.Bookings().UpdateFields(ctx, id, patch); err != nil {
			return fmt.Errorf("mark deleted: %w", err)
		}
		b.IsDeleted, b.DeletedAt, b.UpdatedAt = true, &now, now
		return releaseBed(ctx, tx, b.BedLabel)
	})
	if err != nil {
		return model.Booking{}, classify("soft delete booking", err)
	}
	l.log.Info("booking moved to recycle bin", zap.Int64("booking_id", id))
	return b, nil
}

// Restore brings a booking back from the recycle bin.  Its bed is claimed
// again only if the bed is free; a verified booking whose bed was taken in
// the meantime is restored anyway and flagged for manual reconciliation.
func (l *BedLifecycle) Restore(ctx context.Context, id int64) (res RestoreResult, err error) {
	defer l.observe("restore", &err)

	now := l.now().UTC()
	err = l.store.WithinTx(ctx, func(tx ports.Tx) error {
		res = RestoreResult{}
		b, err := tx.Bookings().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load booking %d: %w", id, err)
		}
		if !b.IsDeleted {
			return invalidTransition("booking %d is not in the recycle bin", id)
		}

		deleted := false
		if err := tx.Bookings().UpdateFields(ctx, id, model.BookingPatch{Deleted: &deleted, UpdatedAt: now}); err != nil {
			return fmt.Errorf("clear deleted: %w", err)
		}
		b.IsDeleted, b.DeletedAt, b.UpdatedAt = false, nil, now
		res.Booking = b

		if b.BedLabel == "" {
			return nil
		}
		var claim model.BedStatus
		switch b.Status {
		case model.BookingVerified:
			claim = model.BedOccupied
		case model.BookingPending:
			claim = model.BedReserved
		default:
			return nil
		}
		ok, err := tx.Inventory().CompareAndSetBedStatus(ctx, b.BedLabel, claim, model.BedFree)
		if err != nil {
			return fmt.Errorf("reclaim bed %s: %w", b.BedLabel, err)
		}
		res.BedReclaimed = ok
		res.NeedsReconciliation = !ok && b.Status == model.BookingVerified
		return nil
	})
	if err != nil {
		return RestoreResult{}, classify("restore booking", err)
	}
	if res.NeedsReconciliation {
		l.log.Warn("restored verified booking without its bed, manual reconciliation required",
			zap.Int64("booking_id", id), zap.String("bed", res.Booking.BedLabel))
	} else {
		l.log.Info("booking restored", zap.Int64("booking_id", id), zap.Bool("bed_reclaimed", res.BedReclaimed))
	}
	return res, nil
}

// PermanentDelete erases a booking.  A booking that was never soft-deleted
// releases its bed first.  Its documents are released after commit.
func (l *BedLifecycle) PermanentDelete(ctx context.Context, id int64) (b model.Booking, err error) {
	defer l.observe("permanent_delete", &err)

	err = l.store.WithinTx(ctx, func(tx ports.Tx) error {
		var err error
		b, err = tx.Bookings().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load booking %d: %w", id, err)
		}
		if err := tx.Bookings().HardDelete(ctx, id); err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		if b.IsDeleted {
			return nil
		}
		return releaseBed(ctx, tx, b.BedLabel)
	})
	if err != nil {
		return model.Booking{}, classify("permanent delete booking", err)
	}
	releaseFiles(ctx, l.files, l.log, b.Documents.Refs())
	l.log.Info("booking permanently deleted", zap.Int64("booking_id", id))
	return b, nil
}

// UpdateBookingAssignment moves a booking to another bed.  A verified
// booking must find the new bed free and occupies it; a booking that is not
// verified leaves the new bed's status as it is.  The old bed is released.
func (l *BedLifecycle) UpdateBookingAssignment(ctx context.Context, id int64, bedLabel string) (model.Booking, error) {
	if strings.TrimSpace(bedLabel) == "" {
		return model.Booking{}, validation("bed_id is required")
	}
	return l.UpdateBooking(ctx, id, BookingUpdate{BedLabel: bedLabel})
}

// UpdateBooking applies an administrative edit: applicant fields, replaced
// documents and an optional bed reassignment, all in one transaction.
// Documents superseded by the edit are released after commit.
func (l *BedLifecycle) UpdateBooking(ctx context.Context, id int64, upd BookingUpdate) (b model.Booking, err error) {
	defer l.observe("update", &err)

	now := l.now().UTC()
	var replaced []string
	err = l.store.WithinTx(ctx, func(tx ports.Tx) error {
		replaced = nil
		var err error
		b, err = tx.Bookings().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load booking %d: %w", id, err)
		}

		patch := model.BookingPatch{UpdatedAt: now}
		if upd.Applicant != nil {
			patch.Applicant = upd.Applicant
			b.Applicant = *upd.Applicant
		}
		if upd.Documents != nil {
			merged, old := b.Documents.Merge(*upd.Documents)
			patch.Documents = &merged
			b.Documents, replaced = merged, old
		}

		oldLabel, newLabel := b.BedLabel, strings.TrimSpace(upd.BedLabel)
		moving := newLabel != "" && newLabel != oldLabel
		if moving {
			if !b.IsDeleted && b.Status == model.BookingVerified {
				ok, err := tx.Inventory().CompareAndSetBedStatus(ctx, newLabel, model.BedOccupied, model.BedFree)
				if err != nil {
					return fmt.Errorf("occupy bed %s: %w", newLabel, err)
				}
				if !ok {
					return conflict(newLabel)
				}
			} else if _, err := tx.Inventory().GetBedStatus(ctx, newLabel); err != nil {
				return fmt.Errorf("check bed %s: %w", newLabel, err)
			}
			patch.BedLabel = &newLabel
			b.BedLabel = newLabel
		}

		if err := tx.Bookings().UpdateFields(ctx, id, patch); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		b.UpdatedAt = now
		if moving && !b.IsDeleted {
			return releaseBed(ctx, tx, oldLabel)
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, classify("update booking", err)
	}
	releaseFiles(ctx, l.files, l.log, replaced)
	return b, nil
}

// EditBooking stores replacement documents and applies the edit.  New files
// are released again if the edit fails.
func (l *BedLifecycle) EditBooking(ctx context.Context, id int64, applicant *model.Applicant, bedLabel string, uploads map[string]ports.Upload) (model.Booking, error) {
	var docs model.BookingDocuments
	stored, err := storeDocuments(ctx, l.files, uploads, model.BookingDocumentFields, docs.Set)
	if err != nil {
		return model.Booking{}, err
	}
	upd := BookingUpdate{Applicant: applicant, BedLabel: bedLabel}
	if len(stored) > 0 {
		upd.Documents = &docs
	}
	b, err := l.UpdateBooking(ctx, id, upd)
	if err != nil {
		releaseFiles(ctx, l.files, l.log, stored)
		return model.Booking{}, err
	}
	return b, nil
}

// GetBooking returns one booking, deleted or not.
func (l *BedLifecycle) GetBooking(ctx context.Context, id int64) (model.Booking, error) {
	b, err := l.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, classify("get booking", err)
	}
	return b, nil
}

// GetActiveBookings lists bookings that are not in the recycle bin.
func (l *BedLifecycle) GetActiveBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error) {
	filter.Deleted = false
	out, err := l.store.Bookings().List(ctx, filter)
	if err != nil {
		return nil, classify("list bookings", err)
	}
	return out, nil
}

// GetTrashedBookings lists soft-deleted bookings still inside the retention
// window.
func (l *BedLifecycle) GetTrashedBookings(ctx context.Context) ([]model.Booking, error) {
	rows, err := l.store.Bookings().List(ctx, model.BookingFilter{Deleted: true})
	if err != nil {
		return nil, classify("list recycle bin", err)
	}
	now := l.now().UTC()
	out := make([]model.Booking, 0, len(rows))
	for _, b := range rows {
		if l.policy.Evaluate(b.IsDeleted, b.DeletedAt, now).Visible {
			out = append(out, b)
		}
	}
	return out, nil
}

// PurgeExpired erases soft-deleted bookings past the retention window and
// returns how many were removed.
func (l *BedLifecycle) PurgeExpired(ctx context.Context) (n int, err error) {
	defer l.observe("purge", &err)

	now := l.now().UTC()
	rows, err := l.store.Bookings().List(ctx, model.BookingFilter{Deleted: true})
	if err != nil {
		return 0, classify("list recycle bin", err)
	}
	var candidates []int64
	for _, b := range rows {
		if l.policy.Evaluate(b.IsDeleted, b.DeletedAt, now).EligibleForPurge {
			candidates = append(candidates, b.ID)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	var refs []string
	err = l.store.WithinTx(ctx, func(tx ports.Tx) error {
		n, refs = 0, nil
		for _, id := range candidates {
			b, err := tx.Bookings().GetByID(ctx, id)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return fmt.Errorf("load booking %d: %w", id, err)
			}
			// restored after the listing above
			if !l.policy.Evaluate(b.IsDeleted, b.DeletedAt, now).EligibleForPurge {
				continue
			}
			if err := tx.Bookings().HardDelete(ctx, id); err != nil {
				return fmt.Errorf("delete booking %d: %w", id, err)
			}
			refs = append(refs, b.Documents.Refs()...)
			n++
		}
		return nil
	})
	if err != nil {
		return 0, classify("purge recycle bin", err)
	}
	releaseFiles(ctx, l.files, l.log, refs)
	if n > 0 {
		l.log.Info("recycle bin purged", zap.Int("bookings", n))
	}
	return n, nil
}

// GetRoomsWithBeds returns every room with its beds.
func (l *BedLifecycle) GetRoomsWithBeds(ctx context.Context) ([]model.RoomWithBeds, error) {
	rooms, err := l.store.Inventory().ListRooms(ctx)
	if err != nil {
		return nil, classify("list rooms", err)
	}
	beds, err := l.store.Inventory().ListBeds(ctx)
	if err != nil {
		return nil, classify("list beds", err)
	}
	byRoom := make(map[int64][]model.Bed, len(rooms))
	for _, b := range beds {
		byRoom[b.RoomID] = append(byRoom[b.RoomID], b)
	}
	out := make([]model.RoomWithBeds, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, model.RoomWithBeds{Room: r, Beds: byRoom[r.ID]})
	}
	return out, nil
}

// GetRoomsSummary returns the free-bed count and availability of each room.
func (l *BedLifecycle) GetRoomsSummary(ctx context.Context) ([]model.RoomSummary, error) {
	rooms, err := l.GetRoomsWithBeds(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, model.Summarize(r.Room, r.Beds))
	}
	return out, nil
}

// GetRoomBeds lists the beds of one room.
func (l *BedLifecycle) GetRoomBeds(ctx context.Context, roomID int64) ([]model.Bed, error) {
	beds, err := l.store.Inventory().ListBedsByRoom(ctx, roomID)
	if err != nil {
		return nil, classify("list room beds", err)
	}
	return beds, nil
}

// RefreshInventoryGauge publishes the current bed counts per status.
func (l *BedLifecycle) RefreshInventoryGauge(ctx context.Context) error {
	beds, err := l.store.Inventory().ListBeds(ctx)
	if err != nil {
		return classify("list beds", err)
	}
	counts := map[model.BedStatus]int{model.BedFree: 0, model.BedReserved: 0, model.BedOccupied: 0}
	for _, b := range beds {
		counts[b.Status]++
	}
	l.rec.SetBedCounts(counts)
	return nil
}

// releaseBed recomputes a bed's status from the bookings that still
// reference it.  The bed row is read first so backends with row locks hold
// it until commit.
func releaseBed(ctx context.Context, tx ports.Tx, label string) error {
	if label == "" {
		return nil
	}
	current, err := tx.Inventory().GetBedStatus(ctx, label)
	if err != nil {
		return fmt.Errorf("lock bed %s: %w", label, err)
	}
	claimants, err := tx.Bookings().List(ctx, model.BookingFilter{BedLabel: label})
	if err != nil {
		return fmt.Errorf("list claimants of %s: %w", label, err)
	}
	next := model.BedStatusFor(claimants)
	if next == current {
		return nil
	}
	if err := tx.Inventory().SetBedStatus(ctx, label, next); err != nil {
		return fmt.Errorf("release bed %s: %w", label, err)
	}
	return nil
}
