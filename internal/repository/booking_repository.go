package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// BookingRepo stores bookings.  Applicant fields and document references are
// kept as JSON documents; the columns the lifecycle filters on (email, bed,
// status, deletion) are first-class.
type BookingRepo struct {
	q    querier
	lock string
}

const bookingColumns = `id, bed_label, status, applicant, documents, is_deleted, deleted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b                   model.Booking
		status              string
		applicant, docs     []byte
		deletedAt           sql.NullInt64
		createdAt, updateAt int64
	)
	if err := row.Scan(&b.ID, &b.BedLabel, &status, &applicant, &docs, &b.IsDeleted, &deletedAt, &createdAt, &updateAt); err != nil {
		return model.Booking{}, err
	}
	var err error
	if b.Status, err = model.ParseBookingStatus(status); err != nil {
		return model.Booking{}, err
	}
	if err := json.Unmarshal(applicant, &b.Applicant); err != nil {
		return model.Booking{}, fmt.Errorf("decode applicant of booking %d: %w", b.ID, err)
	}
	if err := json.Unmarshal(docs, &b.Documents); err != nil {
		return model.Booking{}, fmt.Errorf("decode documents of booking %d: %w", b.ID, err)
	}
	b.DeletedAt = nullMillis(deletedAt)
	b.CreatedAt, b.UpdatedAt = fromMillis(createdAt), fromMillis(updateAt)
	return b, nil
}

// Insert stores b and returns its ID.  The status must be a known value.
func (r *BookingRepo) Insert(ctx context.Context, b *model.Booking) (int64, error) {
	if !b.Status.IsValid() {
		return 0, model.ErrInvalidStatus
	}
	applicant, err := json.Marshal(b.Applicant)
	if err != nil {
		return 0, err
	}
	docs, err := json.Marshal(b.Documents)
	if err != nil {
		return 0, err
	}
	var deletedAt any
	if b.DeletedAt != nil {
		deletedAt = toMillis(*b.DeletedAt)
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO bookings (email, bed_label, status, applicant, documents, is_deleted, deleted_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(b.Applicant.Email)), b.BedLabel, string(b.Status),
		string(applicant), string(docs), b.IsDeleted, deletedAt,
		toMillis(b.CreatedAt), toMillis(b.UpdatedAt))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	b.ID = id
	return id, nil
}

// GetByID loads one booking.  Inside a MySQL transaction the row is locked.
func (r *BookingRepo) GetByID(ctx context.Context, id int64) (model.Booking, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`+r.lock, id)
	b, err := scanBooking(row)
	if err != nil {
		return model.Booking{}, notFound(err, model.ErrBookingNotFound)
	}
	return b, nil
}

// UpdateFields writes only the fields set in p.
func (r *BookingRepo) UpdateFields(ctx context.Context, id int64, p model.BookingPatch) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Applicant != nil {
		raw, err := json.Marshal(p.Applicant)
		if err != nil {
			return err
		}
		set("applicant", string(raw))
		set("email", strings.ToLower(strings.TrimSpace(p.Applicant.Email)))
	}
	if p.Documents != nil {
		raw, err := json.Marshal(p.Documents)
		if err != nil {
			return err
		}
		set("documents", string(raw))
	}
	if p.BedLabel != nil {
		set("bed_label", *p.BedLabel)
	}
	if p.Status != nil {
		if !p.Status.IsValid() {
			return model.ErrInvalidStatus
		}
		set("status", string(*p.Status))
	}
	if p.Deleted != nil {
		set("is_deleted", *p.Deleted)
		if *p.Deleted {
			set("deleted_at", toMillis(p.DeletedAt))
		} else {
			set("deleted_at", nil)
		}
	}
	if !p.UpdatedAt.IsZero() {
		set("updated_at", toMillis(p.UpdatedAt))
	}
	if len(sets) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}

	args = append(args, id)
	res, err := r.q.ExecContext(ctx, `UPDATE bookings SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrBookingNotFound
	}
	return nil
}

// List returns bookings matching f, newest first.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE is_deleted = ?`
	args := []any{f.Deleted}
	if f.Email != "" {
		query += ` AND email = ?`
		args = append(args, strings.ToLower(strings.TrimSpace(f.Email)))
	}
	if f.BedLabel != "" {
		query += ` AND bed_label = ?`
		args = append(args, f.BedLabel)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookingRepo) HardDelete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrBookingNotFound
	}
	return nil
}
