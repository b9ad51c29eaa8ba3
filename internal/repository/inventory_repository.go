package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// InventoryRepo encapsulates database operations for rooms and beds.
type InventoryRepo struct {
	q    querier
	lock string
}

// GetBedStatus reads one bed's status.  Inside a MySQL transaction the row
// stays locked until commit.
func (r *InventoryRepo) GetBedStatus(ctx context.Context, label string) (model.BedStatus, error) {
	var raw string
	err := r.q.QueryRowContext(ctx, `SELECT status FROM beds WHERE label = ?`+r.lock, label).Scan(&raw)
	if err != nil {
		return "", notFound(err, model.ErrBedNotFound)
	}
	return model.ParseBedStatus(raw)
}

func (r *InventoryRepo) SetBedStatus(ctx context.Context, label string, status model.BedStatus) error {
	if !status.IsValid() {
		return model.ErrInvalidStatus
	}
	res, err := r.q.ExecContext(ctx, `UPDATE beds SET status = ? WHERE label = ?`, string(status), label)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrBedNotFound
	}
	return nil
}

// CompareAndSetBedStatus is a single conditional UPDATE.  Zero affected rows
// means either the bed is missing or it holds another status; a follow-up
// read tells the two apart.
func (r *InventoryRepo) CompareAndSetBedStatus(ctx context.Context, label string, next model.BedStatus, expected ...model.BedStatus) (bool, error) {
	if !next.IsValid() {
		return false, model.ErrInvalidStatus
	}
	if len(expected) == 0 {
		_, err := r.GetBedStatus(ctx, label)
		return false, err
	}
	args := make([]any, 0, len(expected)+2)
	args = append(args, string(next), label)
	for _, e := range expected {
		args = append(args, string(e))
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE beds SET status = ? WHERE label = ? AND status IN (`+placeholders(len(expected))+`)`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if _, err := r.GetBedStatus(ctx, label); err != nil {
		return false, err
	}
	return false, nil
}

func (r *InventoryRepo) ListRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, room_number, total_beds FROM rooms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Room
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.ID, &room.RoomNumber, &room.TotalBeds); err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

func (r *InventoryRepo) ListBeds(ctx context.Context) ([]model.Bed, error) {
	return r.queryBeds(ctx, `SELECT id, room_id, label, status FROM beds ORDER BY id`)
}

// ListBedsByRoom returns model.ErrRoomNotFound for an unknown room so an
// empty room is distinguishable from a missing one.
func (r *InventoryRepo) ListBedsByRoom(ctx context.Context, roomID int64) ([]model.Bed, error) {
	var one int
	if err := r.q.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, roomID).Scan(&one); err != nil {
		return nil, notFound(err, model.ErrRoomNotFound)
	}
	return r.queryBeds(ctx, `SELECT id, room_id, label, status FROM beds WHERE room_id = ? ORDER BY id`, roomID)
}

func (r *InventoryRepo) queryBeds(ctx context.Context, query string, args ...any) ([]model.Bed, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Bed
	for rows.Next() {
		var (
			b   model.Bed
			raw string
		)
		if err := rows.Scan(&b.ID, &b.RoomID, &b.Label, &raw); err != nil {
			return nil, err
		}
		if b.Status, err = model.ParseBedStatus(raw); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}
