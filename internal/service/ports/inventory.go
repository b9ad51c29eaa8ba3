// Package ports declares the storage and collaborator contracts the
// services depend on.  Implementations live in repository, memstore,
// storage, notify and queue.
package ports

import (
	"context"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// InventoryStore owns rooms and beds.  Every call is a single-row read or
// write; a label that does not exist yields model.ErrBedNotFound.
type InventoryStore interface {
	// GetBedStatus reads the status of one bed.  Inside a transaction the
	// row is locked for the rest of it where the backend supports that.
	GetBedStatus(ctx context.Context, label string) (model.BedStatus, error)
	// SetBedStatus overwrites the status unconditionally.
	SetBedStatus(ctx context.Context, label string, status model.BedStatus) error
	// CompareAndSetBedStatus moves the bed to next only when its current
	// status is one of expected.  It reports false, nil when the bed exists
	// but holds some other status.
	CompareAndSetBedStatus(ctx context.Context, label string, next model.BedStatus, expected ...model.BedStatus) (bool, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
	ListBeds(ctx context.Context) ([]model.Bed, error)
	ListBedsByRoom(ctx context.Context, roomID int64) ([]model.Bed, error)
}

// BookingStore is plain storage for bookings; it carries no business rules.
type BookingStore interface {
	Insert(ctx context.Context, b *model.Booking) (int64, error)
	GetByID(ctx context.Context, id int64) (model.Booking, error)
	UpdateFields(ctx context.Context, id int64, patch model.BookingPatch) error
	// List returns matching bookings, newest first.
	List(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error)
	HardDelete(ctx context.Context, id int64) error
}

// Tx exposes both stores bound to one open transaction.
type Tx interface {
	Inventory() InventoryStore
	Bookings() BookingStore
}

// Store is the bed/booking persistence handle injected into the lifecycle
// manager.  WithinTx commits when fn returns nil and rolls back otherwise.
type Store interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
