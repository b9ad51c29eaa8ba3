// Package memstore is an in-process implementation of every storage port.
// It backs the test suites and the DB_DRIVER=memory mode.  Transactions work
// on a private copy of the state that replaces the live state on commit, so
// a failing callback leaves nothing behind.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

type state struct {
	rooms         []model.Room
	beds          []model.Bed
	bedIdx        map[string]int
	bookings      map[int64]model.Booking
	admissions    map[int64]model.Admission
	users         map[int64]model.User
	nextRoomID    int64
	nextBedID     int64
	nextBookingID int64
	nextAdmission int64
	nextUserID    int64
}

func newState() state {
	return state{
		bedIdx:     map[string]int{},
		bookings:   map[int64]model.Booking{},
		admissions: map[int64]model.Admission{},
		users:      map[int64]model.User{},
	}
}

func (s state) clone() state {
	out := s
	out.rooms = append([]model.Room(nil), s.rooms...)
	out.beds = append([]model.Bed(nil), s.beds...)
	out.bedIdx = make(map[string]int, len(s.bedIdx))
	for k, v := range s.bedIdx {
		out.bedIdx[k] = v
	}
	out.bookings = make(map[int64]model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		out.bookings[k] = v
	}
	out.admissions = make(map[int64]model.Admission, len(s.admissions))
	for k, v := range s.admissions {
		out.admissions[k] = v
	}
	out.users = make(map[int64]model.User, len(s.users))
	for k, v := range s.users {
		out.users[k] = v
	}
	return out
}

// Store holds all data behind one RW mutex.
type Store struct {
	mu    sync.RWMutex
	state state
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState()}
}

// view runs fn against st when bound to a transaction, or against the live
// state under the store lock otherwise.
type view struct {
	s  *Store
	st *state
}

func (v view) read(fn func(st *state) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return fn(&v.s.state)
}

func (v view) write(fn func(st *state) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(&v.s.state)
}

func (s *Store) Inventory() ports.InventoryStore { return inventory{view{s: s}} }
func (s *Store) Bookings() ports.BookingStore    { return bookings{view{s: s}} }
func (s *Store) Admissions() ports.AdmissionStore {
	return admissions{view{s: s}}
}
func (s *Store) Users() ports.UserStore { return users{view{s: s}} }

type txScope struct{ st *state }

func (t txScope) Inventory() ports.InventoryStore { return inventory{view{st: t.st}} }
func (t txScope) Bookings() ports.BookingStore    { return bookings{view{st: t.st}} }

// WithinTx runs fn on a copy of the state and publishes the copy only when
// fn succeeds.  Transactions are serialised by the store lock.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(txScope{st: &working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// EnsureRoom creates a room and its beds unless a room with that number
// already exists.  Existing beds are never modified.
func (s *Store) EnsureRoom(_ context.Context, roomNumber string, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &s.state
	for _, r := range st.rooms {
		if r.RoomNumber == roomNumber {
			return nil
		}
	}
	st.nextRoomID++
	room := model.Room{ID: st.nextRoomID, RoomNumber: roomNumber, TotalBeds: len(labels)}
	st.rooms = append(st.rooms, room)
	for _, l := range labels {
		if _, ok := st.bedIdx[l]; ok {
			continue
		}
		st.nextBedID++
		st.bedIdx[l] = len(st.beds)
		st.beds = append(st.beds, model.Bed{ID: st.nextBedID, RoomID: room.ID, Label: l, Status: model.BedFree})
	}
	return nil
}

// ---- inventory ----

type inventory struct{ view }

func (i inventory) GetBedStatus(_ context.Context, label string) (model.BedStatus, error) {
	var out model.BedStatus
	err := i.read(func(st *state) error {
		idx, ok := st.bedIdx[label]
		if !ok {
			return model.ErrBedNotFound
		}
		out = st.beds[idx].Status
		return nil
	})
	return out, err
}

func (i inventory) SetBedStatus(_ context.Context, label string, status model.BedStatus) error {
	if !status.IsValid() {
		return model.ErrInvalidStatus
	}
	return i.write(func(st *state) error {
		idx, ok := st.bedIdx[label]
		if !ok {
			return model.ErrBedNotFound
		}
		st.beds[idx].Status = status
		return nil
	})
}

func (i inventory) CompareAndSetBedStatus(_ context.Context, label string, next model.BedStatus, expected ...model.BedStatus) (bool, error) {
	if !next.IsValid() {
		return false, model.ErrInvalidStatus
	}
	swapped := false
	err := i.write(func(st *state) error {
		idx, ok := st.bedIdx[label]
		if !ok {
			return model.ErrBedNotFound
		}
		for _, e := range expected {
			if st.beds[idx].Status == e {
				st.beds[idx].Status = next
				swapped = true
				return nil
			}
		}
		return nil
	})
	return swapped, err
}

func (i inventory) ListRooms(_ context.Context) ([]model.Room, error) {
	var out []model.Room
	err := i.read(func(st *state) error {
		out = append(out, st.rooms...)
		return nil
	})
	return out, err
}

func (i inventory) ListBeds(_ context.Context) ([]model.Bed, error) {
	var out []model.Bed
	err := i.read(func(st *state) error {
		out = append(out, st.beds...)
		return nil
	})
	return out, err
}

func (i inventory) ListBedsByRoom(_ context.Context, roomID int64) ([]model.Bed, error) {
	var out []model.Bed
	err := i.read(func(st *state) error {
		found := false
		for _, r := range st.rooms {
			if r.ID == roomID {
				found = true
				break
			}
		}
		if !found {
			return model.ErrRoomNotFound
		}
		for _, b := range st.beds {
			if b.RoomID == roomID {
				out = append(out, b)
			}
		}
		return nil
	})
	return out, err
}

// ---- bookings ----

type bookings struct{ view }

func (b bookings) Insert(_ context.Context, bk *model.Booking) (int64, error) {
	if !bk.Status.IsValid() {
		return 0, model.ErrInvalidStatus
	}
	var id int64
	err := b.write(func(st *state) error {
		st.nextBookingID++
		id = st.nextBookingID
		row := *bk
		row.ID = id
		st.bookings[id] = row
		return nil
	})
	if err == nil {
		bk.ID = id
	}
	return id, err
}

func (b bookings) GetByID(_ context.Context, id int64) (model.Booking, error) {
	var out model.Booking
	err := b.read(func(st *state) error {
		row, ok := st.bookings[id]
		if !ok {
			return model.ErrBookingNotFound
		}
		out = row
		return nil
	})
	return out, err
}

func (b bookings) UpdateFields(_ context.Context, id int64, p model.BookingPatch) error {
	if p.Status != nil && !p.Status.IsValid() {
		return model.ErrInvalidStatus
	}
	return b.write(func(st *state) error {
		row, ok := st.bookings[id]
		if !ok {
			return model.ErrBookingNotFound
		}
		if p.Applicant != nil {
			row.Applicant = *p.Applicant
		}
		if p.Documents != nil {
			row.Documents = *p.Documents
		}
		if p.BedLabel != nil {
			row.BedLabel = *p.BedLabel
		}
		if p.Status != nil {
			row.Status = *p.Status
		}
		if p.Deleted != nil {
			row.IsDeleted = *p.Deleted
			row.DeletedAt = nil
			if *p.Deleted {
				at := p.DeletedAt
				row.DeletedAt = &at
			}
		}
		if !p.UpdatedAt.IsZero() {
			row.UpdatedAt = p.UpdatedAt
		}
		st.bookings[id] = row
		return nil
	})
}

func (b bookings) List(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var out []model.Booking
	err := b.read(func(st *state) error {
		for _, row := range st.bookings {
			if row.IsDeleted != f.Deleted {
				continue
			}
			if f.Email != "" && !strings.EqualFold(row.Applicant.Email, f.Email) {
				continue
			}
			if f.BedLabel != "" && row.BedLabel != f.BedLabel {
				continue
			}
			out = append(out, row)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (b bookings) HardDelete(_ context.Context, id int64) error {
	return b.write(func(st *state) error {
		if _, ok := st.bookings[id]; !ok {
			return model.ErrBookingNotFound
		}
		delete(st.bookings, id)
		return nil
	})
}
