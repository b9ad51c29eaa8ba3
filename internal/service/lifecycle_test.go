package service_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/recyclebin"
	"github.com/iliyamo/smartcity-intake/internal/repository/memstore"
	"github.com/iliyamo/smartcity-intake/internal/service"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

type fixture struct {
	store    *memstore.Store
	files    *memFiles
	notifier *notifierMock
	clock    *clock
	svc      *service.BedLifecycle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    seededStore(t),
		files:    newMemFiles(),
		notifier: &notifierMock{},
		clock:    newClock(),
	}
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(true, nil).Maybe()
	f.svc = service.NewBedLifecycle(f.store, f.files, f.notifier, zap.NewNop(),
		service.WithClock(f.clock.Now),
		service.WithRecyclePolicy(recyclebin.New(0)))
	return f
}

func (f *fixture) create(t *testing.T, name, bed string) int64 {
	t.Helper()
	id, err := f.svc.CreateBooking(context.Background(), service.NewBooking{Applicant: applicant(name), BedLabel: bed})
	require.NoError(t, err)
	return id
}

func TestLifecycle_ScenarioA(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))

	id := f.create(t, "Ayesha", "R1-B1")
	assert.Equal(t, int64(1), id)
	b, err := f.svc.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Equal(t, model.BedReserved, bedStatus(t, f.store, "R1-B1"))

	res, err := f.svc.VerifyBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BookingVerified, res.Booking.Status)
	assert.True(t, res.NotificationDelivered)
	assert.Equal(t, model.BedOccupied, bedStatus(t, f.store, "R1-B1"))

	deleted, err := f.svc.SoftDelete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, model.BookingVerified, deleted.Status)
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))

	stored, err := f.svc.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)
	require.NotNil(t, stored.DeletedAt)
	assert.Equal(t, f.clock.Now(), *stored.DeletedAt)
}

func TestLifecycle_ScenarioB_ConcurrentCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ids       []int64
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			id, err := f.svc.CreateBooking(ctx, service.NewBooking{Applicant: applicant("Racer"), BedLabel: "R1-B1"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ids = append(ids, id)
			case errors.Is(err, service.ErrBedConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, ids, 1)
	assert.Equal(t, callers-1, conflicts)
	assert.Equal(t, model.BedReserved, bedStatus(t, f.store, "R1-B1"))

	claimants, err := f.store.Bookings().List(ctx, model.BookingFilter{BedLabel: "R1-B1"})
	require.NoError(t, err)
	require.Len(t, claimants, 1)
	assert.Equal(t, ids[0], claimants[0].ID)
}

func TestLifecycle_ScenarioC_VerifyAgainstOccupiedBed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, "First", "R1-B1")
	second := f.create(t, "Second", "R1-B2")
	// moving a pending booking leaves the target bed alone
	_, err := f.svc.UpdateBookingAssignment(ctx, second, "R1-B1")
	require.NoError(t, err)
	_, err = f.svc.VerifyBooking(ctx, first)
	require.NoError(t, err)
	require.Equal(t, model.BedOccupied, bedStatus(t, f.store, "R1-B1"))

	_, err = f.svc.VerifyBooking(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrBedConflict)
	var conflict *service.BedConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "R1-B1", conflict.BedLabel)
	assert.Contains(t, err.Error(), "R1-B1")

	b, err := f.svc.GetBooking(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Equal(t, model.BedOccupied, bedStatus(t, f.store, "R1-B1"))
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B2"))
}

func TestLifecycle_CreateBookingFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "Holder", "R1-B1")

	tests := []struct {
		name string
		in   service.NewBooking
		want error
	}{
		{"bed taken", service.NewBooking{Applicant: applicant("Late"), BedLabel: "R1-B1"}, service.ErrBedConflict},
		{"unknown bed", service.NewBooking{Applicant: applicant("Lost"), BedLabel: "R9-B9"}, service.ErrNotFound},
		{"missing bed", service.NewBooking{Applicant: applicant("Blank")}, service.ErrValidation},
		{"missing name", service.NewBooking{BedLabel: "R1-B2"}, service.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateBooking(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B2"))
	active, err := f.svc.GetActiveBookings(ctx, model.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestLifecycle_VerifyPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.VerifyBooking(ctx, 42)
	assert.ErrorIs(t, err, service.ErrNotFound)

	rejected := f.create(t, "Rejected", "R1-B1")
	_, err = f.svc.RejectBooking(ctx, rejected)
	require.NoError(t, err)
	_, err = f.svc.VerifyBooking(ctx, rejected)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	trashed := f.create(t, "Trashed", "R1-B2")
	_, err = f.svc.SoftDelete(ctx, trashed)
	require.NoError(t, err)
	_, err = f.svc.VerifyBooking(ctx, trashed)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	verified := f.create(t, "Twice", "R2-B1")
	_, err = f.svc.VerifyBooking(ctx, verified)
	require.NoError(t, err)
	_, err = f.svc.VerifyBooking(ctx, verified)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestLifecycle_NotificationFailureDoesNotRollBack(t *testing.T) {
	st := seededStore(t)
	notifier := &notifierMock{}
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n model.Notification) bool {
		return n.Kind == model.NotifyBookingVerified && n.Recipient == "mariam@example.com" && n.Fields["bed_id"] == "R1-B1"
	})).Return(false, errors.New("smtp down")).Once()
	svc := service.NewBedLifecycle(st, nil, notifier, zap.NewNop())
	ctx := context.Background()

	id, err := svc.CreateBooking(ctx, service.NewBooking{Applicant: applicant("Mariam"), BedLabel: "R1-B1"})
	require.NoError(t, err)
	res, err := svc.VerifyBooking(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.NotificationDelivered)
	assert.Equal(t, model.BookingVerified, res.Booking.Status)
	assert.Equal(t, model.BedOccupied, bedStatus(t, st, "R1-B1"))
	notifier.AssertExpectations(t)
}

func TestLifecycle_RejectTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, "Bilal", "R1-B1")
	_, err := f.svc.VerifyBooking(ctx, id)
	require.NoError(t, err)

	first, err := f.svc.RejectBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BookingRejected, first.Status)
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))

	_, err = f.svc.RejectBooking(ctx, id)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	again, err := f.svc.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))
}

func TestLifecycle_RejectKeepsOtherClaimant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	holder := f.create(t, "Holder", "R1-B1")
	mover := f.create(t, "Mover", "R1-B2")
	_, err := f.svc.VerifyBooking(ctx, holder)
	require.NoError(t, err)
	_, err = f.svc.UpdateBookingAssignment(ctx, mover, "R1-B1")
	require.NoError(t, err)

	// rejecting the pending booking must not free a bed another booking occupies
	_, err = f.svc.RejectBooking(ctx, mover)
	require.NoError(t, err)
	assert.Equal(t, model.BedOccupied, bedStatus(t, f.store, "R1-B1"))
}

func TestLifecycle_RestoreReversesSoftDelete(t *testing.T) {
	for _, verify := range []bool{false, true} {
		t.Run(map[bool]string{false: "pending", true: "verified"}[verify], func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			id := f.create(t, "Sana", "R1-B1")
			if verify {
				_, err := f.svc.VerifyBooking(ctx, id)
				require.NoError(t, err)
			}
			before, err := f.svc.GetBooking(ctx, id)
			require.NoError(t, err)
			bedBefore := bedStatus(t, f.store, "R1-B1")

			_, err = f.svc.SoftDelete(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))

			res, err := f.svc.Restore(ctx, id)
			require.NoError(t, err)
			assert.True(t, res.BedReclaimed)
			assert.False(t, res.NeedsReconciliation)
			assert.False(t, res.Booking.IsDeleted)
			assert.Nil(t, res.Booking.DeletedAt)
			assert.Equal(t, before.Status, res.Booking.Status)
			assert.Equal(t, bedBefore, bedStatus(t, f.store, "R1-B1"))
		})
	}
}

func TestLifecycle_RestoreContestedBed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	original := f.create(t, "Original", "R1-B1")
	_, err := f.svc.VerifyBooking(ctx, original)
	require.NoError(t, err)
	_, err = f.svc.SoftDelete(ctx, original)
	require.NoError(t, err)

	newcomer := f.create(t, "Newcomer", "R1-B1")
	_, err = f.svc.VerifyBooking(ctx, newcomer)
	require.NoError(t, err)

	res, err := f.svc.Restore(ctx, original)
	require.NoError(t, err)
	assert.False(t, res.BedReclaimed)
	assert.True(t, res.NeedsReconciliation)
	assert.False(t, res.Booking.IsDeleted)
	assert.Equal(t, model.BedOccupied, bedStatus(t, f.store, "R1-B1"))

	_, err = f.svc.Restore(ctx, original)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestLifecycle_SoftDeleteTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, "Hina", "R1-B1")
	_, err := f.svc.SoftDelete(ctx, id)
	require.NoError(t, err)
	_, err = f.svc.SoftDelete(ctx, id)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestLifecycle_TrashWindowAndPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, "Omar", "R1-B1")
	_, err := f.svc.SoftDelete(ctx, id)
	require.NoError(t, err)

	f.clock.Advance(recyclebin.DefaultRetention - time.Minute)
	trash, err := f.svc.GetTrashedBookings(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, id, trash[0].ID)

	n, err := f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(time.Minute)
	trash, err = f.svc.GetTrashedBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, trash)

	n, err = f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = f.svc.GetBooking(ctx, id)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))
}

func TestLifecycle_PermanentDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.SubmitBooking(ctx,
		service.NewBooking{Applicant: applicant("Zara"), BedLabel: "R1-B1"},
		map[string]ports.Upload{"photo": upload("me.png", "img"), "fee_voucher": upload("voucher.jpg", "pdf")})
	require.NoError(t, err)
	b, err := f.svc.VerifyBooking(ctx, id)
	require.NoError(t, err)
	refs := b.Booking.Documents.Refs()
	require.Len(t, refs, 2)

	_, err = f.svc.PermanentDelete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))
	for _, ref := range refs {
		assert.False(t, f.files.has(ref), ref)
	}

	_, err = f.svc.PermanentDelete(ctx, id)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestLifecycle_SubmitRejectsBadUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitBooking(ctx,
		service.NewBooking{Applicant: applicant("Gif"), BedLabel: "R1-B1"},
		map[string]ports.Upload{"photo": upload("me.png", "ok"), "signature": upload("sig.gif", "no")})
	require.ErrorIs(t, err, service.ErrValidation)
	assert.ErrorIs(t, err, ports.ErrInvalidFileType)
	assert.Empty(t, f.files.stored)
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))
}

func TestLifecycle_SubmitConflictReleasesFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "Holder", "R1-B1")

	_, err := f.svc.SubmitBooking(ctx,
		service.NewBooking{Applicant: applicant("Late"), BedLabel: "R1-B1"},
		map[string]ports.Upload{"photo": upload("me.png", "img")})
	require.ErrorIs(t, err, service.ErrBedConflict)
	assert.Empty(t, f.files.stored)
	assert.Len(t, f.files.released, 1)
}

func TestLifecycle_ReassignVerified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.create(t, "Kamran", "R1-B1")
	_, err := f.svc.VerifyBooking(ctx, id)
	require.NoError(t, err)
	other := f.create(t, "Other", "R1-B2")

	_, err = f.svc.UpdateBookingAssignment(ctx, id, "R1-B2")
	assert.ErrorIs(t, err, service.ErrBedConflict)
	assert.Equal(t, model.BedOccupied, bedStatus(t, f.store, "R1-B1"))
	assert.Equal(t, model.BedReserved, bedStatus(t, f.store, "R1-B2"))

	_, err = f.svc.UpdateBookingAssignment(ctx, id, "R9-B9")
	assert.ErrorIs(t, err, service.ErrNotFound)

	moved, err := f.svc.UpdateBookingAssignment(ctx, id, "R2-B1")
	require.NoError(t, err)
	assert.Equal(t, "R2-B1", moved.BedLabel)
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))
	assert.Equal(t, model.BedOccupied, bedStatus(t, f.store, "R2-B1"))

	_, err = f.svc.RejectBooking(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B2"))
}

func TestLifecycle_ReassignPendingLeavesNewBedUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.create(t, "Bilal", "R1-B1")
	require.Equal(t, model.BedReserved, bedStatus(t, f.store, "R1-B1"))

	moved, err := f.svc.UpdateBookingAssignment(ctx, id, "R2-B1")
	require.NoError(t, err)
	assert.Equal(t, "R2-B1", moved.BedLabel)
	assert.Equal(t, model.BookingPending, moved.Status)

	// a pending booking holds no claim on its new bed until verified
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R2-B1"))

	got, err := f.svc.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "R2-B1", got.BedLabel)

	_, err = f.svc.UpdateBookingAssignment(ctx, id, "R9-B9")
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R2-B1"))
}

func TestLifecycle_ReassignDeletedVerifiedThenRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.create(t, "Danish", "R1-B1")
	_, err := f.svc.VerifyBooking(ctx, id)
	require.NoError(t, err)
	_, err = f.svc.SoftDelete(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))

	moved, err := f.svc.UpdateBookingAssignment(ctx, id, "R2-B1")
	require.NoError(t, err)
	assert.Equal(t, "R2-B1", moved.BedLabel)
	assert.True(t, moved.IsDeleted)
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R2-B1"))

	res, err := f.svc.Restore(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.BedReclaimed)
	assert.False(t, res.NeedsReconciliation)
	assert.Equal(t, "R2-B1", res.Booking.BedLabel)
	assert.Equal(t, model.BedOccupied, bedStatus(t, f.store, "R2-B1"))
	assert.Equal(t, model.BedFree, bedStatus(t, f.store, "R1-B1"))
	assertBedConsistent(t, f.store, "R1-B1")
	assertBedConsistent(t, f.store, "R2-B1")
}

func TestLifecycle_EditReplacesDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.SubmitBooking(ctx,
		service.NewBooking{Applicant: applicant("Noor"), BedLabel: "R1-B1"},
		map[string]ports.Upload{"photo": upload("old.png", "old")})
	require.NoError(t, err)
	before, err := f.svc.GetBooking(ctx, id)
	require.NoError(t, err)

	changed := before.Applicant
	changed.Contact = "0300-0000000"
	after, err := f.svc.EditBooking(ctx, id, &changed, "", map[string]ports.Upload{"photo": upload("new.jpg", "new")})
	require.NoError(t, err)
	assert.Equal(t, "0300-0000000", after.Applicant.Contact)
	assert.NotEqual(t, before.Documents.Photo, after.Documents.Photo)
	assert.False(t, f.files.has(before.Documents.Photo))
	assert.True(t, f.files.has(after.Documents.Photo))
	assert.Equal(t, model.BedReserved, bedStatus(t, f.store, "R1-B1"))
}

func TestLifecycle_RoomsSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "A", "R1-B1")
	f.create(t, "B", "R2-B1")

	summary, err := f.svc.GetRoomsSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, 1, summary[0].FreeBeds)
	assert.Equal(t, model.RoomPartial, summary[0].Status)
	assert.Equal(t, 0, summary[1].FreeBeds)
	assert.Equal(t, model.RoomFull, summary[1].Status)

	beds, err := f.svc.GetRoomBeds(ctx, summary[0].ID)
	require.NoError(t, err)
	assert.Len(t, beds, 2)
	_, err = f.svc.GetRoomBeds(ctx, 99)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

type recorderSpy struct {
	mu       sync.Mutex
	outcomes map[string]int
	counts   map[model.BedStatus]int
}

func (r *recorderSpy) ObserveOperation(op, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[op+"/"+outcome]++
}

func (r *recorderSpy) SetBedCounts(c map[model.BedStatus]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = c
}

func TestLifecycle_RecordsOutcomes(t *testing.T) {
	spy := &recorderSpy{outcomes: map[string]int{}}
	st := seededStore(t)
	svc := service.NewBedLifecycle(st, nil, nil, nil, service.WithRecorder(spy))
	ctx := context.Background()

	id, err := svc.CreateBooking(ctx, service.NewBooking{Applicant: applicant("Rec"), BedLabel: "R1-B1"})
	require.NoError(t, err)
	_, err = svc.CreateBooking(ctx, service.NewBooking{Applicant: applicant("Rec"), BedLabel: "R1-B1"})
	require.Error(t, err)
	res, err := svc.VerifyBooking(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.NotificationDelivered)
	require.NoError(t, svc.RefreshInventoryGauge(ctx))

	assert.Equal(t, 1, spy.outcomes["create/ok"])
	assert.Equal(t, 1, spy.outcomes["create/bed_conflict"])
	assert.Equal(t, 1, spy.outcomes["verify/ok"])
	assert.Equal(t, map[model.BedStatus]int{model.BedFree: 2, model.BedReserved: 0, model.BedOccupied: 1}, spy.counts)
}

// TestLifecycle_RandomSequences drives one bed through random operation
// sequences and checks after every step that its stored status matches the
// status derived from the bookings referencing it.
func TestLifecycle_RandomSequences(t *testing.T) {
	const (
		runs  = 200
		steps = 40
		bed   = "R1-B1"
	)
	for seed := uint64(1); seed <= runs; seed++ {
		f := newFixture(t)
		ctx := context.Background()
		rng := rand.New(rand.NewPCG(seed, seed*7919))
		var ids []int64

	sequence:
		for step := 0; step < steps; step++ {
			pick := func() int64 {
				if len(ids) == 0 {
					return 1
				}
				return ids[rng.IntN(len(ids))]
			}
			var err error
			switch rng.IntN(5) {
			case 0:
				var id int64
				id, err = f.svc.CreateBooking(ctx, service.NewBooking{Applicant: applicant("Seq"), BedLabel: bed})
				if err == nil {
					ids = append(ids, id)
				}
			case 1:
				_, err = f.svc.VerifyBooking(ctx, pick())
			case 2:
				_, err = f.svc.RejectBooking(ctx, pick())
			case 3:
				_, err = f.svc.SoftDelete(ctx, pick())
			case 4:
				var res service.RestoreResult
				res, err = f.svc.Restore(ctx, pick())
				if err == nil && res.NeedsReconciliation {
					// accepted divergence, left for manual reconciliation
					break sequence
				}
			}
			if err != nil {
				require.Truef(t,
					errors.Is(err, service.ErrBedConflict) || errors.Is(err, service.ErrInvalidTransition) || errors.Is(err, service.ErrNotFound),
					"seed %d step %d: unexpected error %v", seed, step, err)
			}
			assertBedConsistent(t, f.store, bed)
		}
	}
}
