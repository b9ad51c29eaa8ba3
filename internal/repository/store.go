package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/smartcity-intake/internal/database"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

// querier is satisfied by both *sql.DB and *sql.Tx so every repo method runs
// the same SQL inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the persistence ports on top of database/sql.  Queries
// use '?' placeholders shared by MySQL and SQLite.
type Store struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewStore(db *sql.DB, dialect database.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// lockClause is appended to reads that must hold the row until commit.
// SQLite locks the whole database for the writer, so it needs none.
func (s *Store) lockClause() string {
	if s.dialect == database.MySQL {
		return " FOR UPDATE"
	}
	return ""
}

func (s *Store) Inventory() ports.InventoryStore  { return &InventoryRepo{q: s.db} }
func (s *Store) Bookings() ports.BookingStore     { return &BookingRepo{q: s.db} }
func (s *Store) Admissions() ports.AdmissionStore { return &AdmissionRepo{q: s.db} }
func (s *Store) Users() ports.UserStore           { return &UserRepo{q: s.db} }

type txScope struct {
	tx   *sql.Tx
	lock string
}

func (t txScope) Inventory() ports.InventoryStore { return &InventoryRepo{q: t.tx, lock: t.lock} }
func (t txScope) Bookings() ports.BookingStore    { return &BookingRepo{q: t.tx, lock: t.lock} }

// WithinTx runs fn inside one database transaction, committing when fn
// returns nil and rolling back otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(txScope{tx: tx, lock: s.lockClause()})
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

// EnsureRoom creates a room and its beds unless a room with that number
// already exists.  Existing rows are never modified.
func (s *Store) EnsureRoom(ctx context.Context, roomNumber string, labels []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE room_number = ?`, roomNumber).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO rooms (room_number, total_beds) VALUES (?, ?)`, roomNumber, len(labels))
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		for _, label := range labels {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO beds (room_id, label, status) VALUES (?, ?, 'free')`, id, label); err != nil {
				return err
			}
		}
		return nil
	})
}
