package service_test

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/repository/memstore"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

type notifierMock struct{ mock.Mock }

func (m *notifierMock) Notify(ctx context.Context, n model.Notification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

// memFiles keeps uploads in a map and remembers what was released.
type memFiles struct {
	mu       sync.Mutex
	seq      int
	stored   map[string]string
	released []string
}

func newMemFiles() *memFiles { return &memFiles{stored: map[string]string{}} }

func (f *memFiles) Store(_ context.Context, up ports.Upload, label string) (string, error) {
	ext := strings.ToLower(path.Ext(up.Filename))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return "", ports.ErrInvalidFileType
	}
	body, err := io.ReadAll(up.Body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ref := fmt.Sprintf("uploads/%d_%s%s", f.seq, label, ext)
	f.stored[ref] = string(body)
	return ref, nil
}

func (f *memFiles) Delete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, ref)
	f.released = append(f.released, ref)
	return nil
}

func (f *memFiles) has(ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.stored[ref]
	return ok
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// seededStore returns a store with room 1 (R1-B1, R1-B2) and room 2 (R2-B1).
func seededStore(t *testing.T) *memstore.Store {
	t.Helper()
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.EnsureRoom(ctx, "1", []string{model.BedLabel(1, 1), model.BedLabel(1, 2)}))
	require.NoError(t, st.EnsureRoom(ctx, "2", []string{model.BedLabel(2, 1)}))
	return st
}

func applicant(name string) model.Applicant {
	return model.Applicant{
		StudentName: name,
		FatherName:  "Father of " + name,
		Email:       strings.ToLower(name) + "@example.com",
		CheckInDate: "2026-06-01",
		RoomNumber:  "1",
	}
}

func upload(name, body string) ports.Upload {
	return ports.Upload{Filename: name, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func bedStatus(t *testing.T, st ports.Store, label string) model.BedStatus {
	t.Helper()
	s, err := st.Inventory().GetBedStatus(context.Background(), label)
	require.NoError(t, err)
	return s
}

// assertBedConsistent checks that the stored status of label is the one
// derived from its non-deleted bookings and that at most one of them is
// verified.
func assertBedConsistent(t *testing.T, st ports.Store, label string) {
	t.Helper()
	ctx := context.Background()
	claimants, err := st.Bookings().List(ctx, model.BookingFilter{BedLabel: label})
	require.NoError(t, err)
	verified := 0
	for _, b := range claimants {
		if b.Status == model.BookingVerified {
			verified++
		}
	}
	require.LessOrEqual(t, verified, 1, "bed %s has %d verified bookings", label, verified)
	require.Equal(t, model.BedStatusFor(claimants), bedStatus(t, st, label), "bed %s", label)
}
