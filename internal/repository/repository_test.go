package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/database"
	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/repository"
	"github.com/iliyamo/smartcity-intake/internal/service"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db, database.SQLite))

	st := repository.NewStore(db, database.SQLite)
	require.NoError(t, database.SeedInventory(ctx, st, 2, 3))
	return st
}

func TestInventory_Seed(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	// seeding again is a no-op
	require.NoError(t, database.SeedInventory(ctx, st, 2, 3))

	rooms, err := st.Inventory().ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "1", rooms[0].RoomNumber)
	assert.Equal(t, 3, rooms[0].TotalBeds)

	beds, err := st.Inventory().ListBedsByRoom(ctx, rooms[1].ID)
	require.NoError(t, err)
	require.Len(t, beds, 3)
	assert.Equal(t, "R2-B1", beds[0].Label)
	assert.Equal(t, model.BedFree, beds[0].Status)

	_, err = st.Inventory().ListBedsByRoom(ctx, 404)
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
}

func TestInventory_CompareAndSet(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	inv := st.Inventory()

	ok, err := inv.CompareAndSetBedStatus(ctx, "R1-B1", model.BedReserved, model.BedFree)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = inv.CompareAndSetBedStatus(ctx, "R1-B1", model.BedReserved, model.BedFree)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = inv.CompareAndSetBedStatus(ctx, "R1-B1", model.BedOccupied, model.BedFree, model.BedReserved)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = inv.CompareAndSetBedStatus(ctx, "R7-B7", model.BedReserved, model.BedFree)
	assert.ErrorIs(t, err, model.ErrBedNotFound)

	s, err := inv.GetBedStatus(ctx, "R1-B1")
	require.NoError(t, err)
	assert.Equal(t, model.BedOccupied, s)

	require.NoError(t, inv.SetBedStatus(ctx, "R1-B1", model.BedFree))
	assert.ErrorIs(t, inv.SetBedStatus(ctx, "R7-B7", model.BedFree), model.ErrBedNotFound)
	assert.ErrorIs(t, inv.SetBedStatus(ctx, "R1-B1", model.BedStatus("broken")), model.ErrInvalidStatus)
}

func TestBookings_RoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)

	b := model.Booking{
		Applicant: model.Applicant{StudentName: "Fatima", Email: "Fatima@Example.com", CNIC: "12345-1234567-1"},
		Documents: model.BookingDocuments{Photo: "uploads/a_photo.png"},
		BedLabel:  "R1-B2",
		Status:    model.BookingPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := st.Bookings().Insert(ctx, &b)
	require.NoError(t, err)
	assert.Equal(t, id, b.ID)

	got, err := st.Bookings().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	deleted, later := true, now.Add(time.Hour)
	verified := model.BookingVerified
	require.NoError(t, st.Bookings().UpdateFields(ctx, id, model.BookingPatch{Status: &verified, Deleted: &deleted, DeletedAt: later, UpdatedAt: later}))
	got, err = st.Bookings().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BookingVerified, got.Status)
	assert.True(t, got.IsDeleted)
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, later, *got.DeletedAt)

	active, err := st.Bookings().List(ctx, model.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, active)
	trashed, err := st.Bookings().List(ctx, model.BookingFilter{Deleted: true, Email: "fatima@example.com"})
	require.NoError(t, err)
	require.Len(t, trashed, 1)

	restored := false
	require.NoError(t, st.Bookings().UpdateFields(ctx, id, model.BookingPatch{Deleted: &restored}))
	got, err = st.Bookings().GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)
	assert.Nil(t, got.DeletedAt)

	require.NoError(t, st.Bookings().HardDelete(ctx, id))
	_, err = st.Bookings().GetByID(ctx, id)
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
	assert.ErrorIs(t, st.Bookings().HardDelete(ctx, id), model.ErrBookingNotFound)
	assert.ErrorIs(t, st.Bookings().UpdateFields(ctx, id, model.BookingPatch{UpdatedAt: later}), model.ErrBookingNotFound)
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.WithinTx(ctx, func(tx ports.Tx) error {
		if err := tx.Inventory().SetBedStatus(ctx, "R1-B1", model.BedOccupied); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	s, err := st.Inventory().GetBedStatus(ctx, "R1-B1")
	require.NoError(t, err)
	assert.Equal(t, model.BedFree, s)
}

func TestLifecycleOnSQLite(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	svc := service.NewBedLifecycle(st, nil, nil, zap.NewNop())

	id, err := svc.CreateBooking(ctx, service.NewBooking{Applicant: model.Applicant{StudentName: "Usman"}, BedLabel: "R1-B1"})
	require.NoError(t, err)
	_, err = svc.VerifyBooking(ctx, id)
	require.NoError(t, err)

	_, err = svc.CreateBooking(ctx, service.NewBooking{Applicant: model.Applicant{StudentName: "Late"}, BedLabel: "R1-B1"})
	var conflict *service.BedConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "R1-B1", conflict.BedLabel)

	_, err = svc.SoftDelete(ctx, id)
	require.NoError(t, err)
	s, err := st.Inventory().GetBedStatus(ctx, "R1-B1")
	require.NoError(t, err)
	assert.Equal(t, model.BedFree, s)

	res, err := svc.Restore(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.BedReclaimed)
	s, err = st.Inventory().GetBedStatus(ctx, "R1-B1")
	require.NoError(t, err)
	assert.Equal(t, model.BedOccupied, s)

	summary, err := svc.GetRoomsSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, 2, summary[0].FreeBeds)
	assert.Equal(t, model.RoomPartial, summary[0].Status)
}

func TestLifecycleOnSQLite_ConcurrentCreate(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	svc := service.NewBedLifecycle(st, nil, nil, zap.NewNop())

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, clash int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBooking(ctx, service.NewBooking{Applicant: model.Applicant{StudentName: "Racer"}, BedLabel: "R2-B3"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, service.ErrBedConflict) {
				clash++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 5, clash)
	claimants, err := st.Bookings().List(ctx, model.BookingFilter{BedLabel: "R2-B3"})
	require.NoError(t, err)
	assert.Len(t, claimants, 1)
}

func TestUsers(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	users := st.Users()

	u := model.User{FullName: "Admin", Email: " Admin@Example.com ", PasswordHash: "x", Role: model.RoleAdmin, Category: model.CategoryHostel}
	id, err := users.Create(ctx, &u)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)

	dup := model.User{Email: "admin@example.com", PasswordHash: "y", Role: model.RoleUser, Category: model.CategoryHostel}
	_, err = users.Create(ctx, &dup)
	assert.ErrorIs(t, err, model.ErrEmailExists)

	other := model.User{Email: "admin@example.com", PasswordHash: "z", Role: model.RoleUser, Category: model.CategorySchool}
	_, err = users.Create(ctx, &other)
	require.NoError(t, err)

	cats, err := users.Categories(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, []model.Category{model.CategoryHostel, model.CategorySchool}, cats)

	got, err := users.GetByEmail(ctx, "admin@example.com", model.CategoryHostel)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Nil(t, got.LastLogin)

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, users.TouchLastLogin(ctx, id, at))
	got, err = users.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, at, *got.LastLogin)

	_, err = users.GetByEmail(ctx, "nobody@example.com", model.CategoryHostel)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestAdmissions(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	repo := st.Admissions()
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	a := model.Admission{
		Form:            model.AdmissionForm{StudentName: "Hamza", AdmissionClass: "Nursery", Email: "p@example.com"},
		Documents:       model.AdmissionDocuments{BForm: "uploads/x_b_form_file.png"},
		FatherSignature: "data:image/png;base64,AAA",
		Status:          model.AdmissionPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	id, err := repo.Insert(ctx, &a)
	require.NoError(t, err)
	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	deleted := true
	require.NoError(t, repo.UpdateFields(ctx, id, model.AdmissionPatch{Deleted: &deleted, DeletedAt: now}))
	active, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	trash, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.True(t, trash[0].IsDeleted())

	require.NoError(t, repo.HardDelete(ctx, id))
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, model.ErrAdmissionNotFound)
}

func TestAdmissions_ConditionalRecycleBin(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	repo := st.Admissions()
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	a := model.Admission{Form: model.AdmissionForm{StudentName: "Rida"}, Status: model.AdmissionPending, CreatedAt: now, UpdatedAt: now}
	id, err := repo.Insert(ctx, &a)
	require.NoError(t, err)

	// active rows are never purged
	gone, err := repo.PurgeDeleted(ctx, id, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, gone)

	moved, err := repo.SetDeleted(ctx, id, true, now)
	require.NoError(t, err)
	assert.True(t, moved)
	moved, err = repo.SetDeleted(ctx, id, true, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, moved)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, now, *got.DeletedAt)

	// deleted after the cutoff stays
	gone, err = repo.PurgeDeleted(ctx, id, now.Add(-time.Second))
	require.NoError(t, err)
	assert.False(t, gone)

	moved, err = repo.SetDeleted(ctx, id, false, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, moved)
	gone, err = repo.PurgeDeleted(ctx, id, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, gone)

	_, err = repo.SetDeleted(ctx, id, true, now)
	require.NoError(t, err)
	gone, err = repo.PurgeDeleted(ctx, id, now)
	require.NoError(t, err)
	assert.True(t, gone)
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, model.ErrAdmissionNotFound)

	moved, err = repo.SetDeleted(ctx, id, false, now)
	require.NoError(t, err)
	assert.False(t, moved)
}
