package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// AdmissionRepo encapsulates database operations for school admissions.
type AdmissionRepo struct {
	q querier
}

const admissionColumns = `id, form, documents, father_signature, status, deleted_at, created_at, updated_at`

func scanAdmission(row rowScanner) (model.Admission, error) {
	var (
		a                    model.Admission
		form, docs           []byte
		status               string
		deletedAt            sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&a.ID, &form, &docs, &a.FatherSignature, &status, &deletedAt, &createdAt, &updatedAt); err != nil {
		return model.Admission{}, err
	}
	var err error
	if a.Status, err = model.ParseAdmissionStatus(status); err != nil {
		return model.Admission{}, err
	}
	if err := json.Unmarshal(form, &a.Form); err != nil {
		return model.Admission{}, fmt.Errorf("decode form of admission %d: %w", a.ID, err)
	}
	if err := json.Unmarshal(docs, &a.Documents); err != nil {
		return model.Admission{}, fmt.Errorf("decode documents of admission %d: %w", a.ID, err)
	}
	a.DeletedAt = nullMillis(deletedAt)
	a.CreatedAt, a.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
	return a, nil
}

func (r *AdmissionRepo) Insert(ctx context.Context, a *model.Admission) (int64, error) {
	if !a.Status.IsValid() {
		return 0, model.ErrInvalidStatus
	}
	form, err := json.Marshal(a.Form)
	if err != nil {
		return 0, err
	}
	docs, err := json.Marshal(a.Documents)
	if err != nil {
		return 0, err
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO admissions (email, student_name, form, documents, father_signature, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(a.Form.Email)), a.Form.StudentName, string(form), string(docs),
		a.FatherSignature, string(a.Status), toMillis(a.CreatedAt), toMillis(a.UpdatedAt))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	a.ID = id
	return id, nil
}

func (r *AdmissionRepo) GetByID(ctx context.Context, id int64) (model.Admission, error) {
	a, err := scanAdmission(r.q.QueryRowContext(ctx, `SELECT `+admissionColumns+` FROM admissions WHERE id = ?`, id))
	if err != nil {
		return model.Admission{}, notFound(err, model.ErrAdmissionNotFound)
	}
	return a, nil
}

func (r *AdmissionRepo) UpdateFields(ctx context.Context, id int64, p model.AdmissionPatch) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Form != nil {
		raw, err := json.Marshal(p.Form)
		if err != nil {
			return err
		}
		set("form", string(raw))
		set("email", strings.ToLower(strings.TrimSpace(p.Form.Email)))
		set("student_name", p.Form.StudentName)
	}
	if p.Documents != nil {
		raw, err := json.Marshal(p.Documents)
		if err != nil {
			return err
		}
		set("documents", string(raw))
	}
	if p.Status != nil {
		if !p.Status.IsValid() {
			return model.ErrInvalidStatus
		}
		set("status", string(*p.Status))
	}
	if p.Deleted != nil {
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
	res, err := r.q.ExecContext(ctx, `UPDATE admissions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrAdmissionNotFound
	}
	return nil
}

// List returns active admissions, or the soft-deleted ones, newest first.
func (r *AdmissionRepo) List(ctx context.Context, deleted bool) ([]model.Admission, error) {
	cond := `deleted_at IS NULL`
	if deleted {
		cond = `deleted_at IS NOT NULL`
	}
	rows, err := r.q.QueryContext(ctx, `SELECT `+admissionColumns+` FROM admissions WHERE `+cond+` ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AdmissionRepo) HardDelete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM admissions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrAdmissionNotFound
	}
	return nil
}

// SetDeleted flips the recycle-bin flag only from the opposite state, so two
// racing callers cannot both succeed.
func (r *AdmissionRepo) SetDeleted(ctx context.Context, id int64, deleted bool, at time.Time) (bool, error) {
	q := `UPDATE admissions SET deleted_at = NULL, updated_at = ? WHERE id = ? AND deleted_at IS NOT NULL`
	args := []any{toMillis(at), id}
	if deleted {
		q = `UPDATE admissions SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
		args = []any{toMillis(at), toMillis(at), id}
	}
	res, err := r.q.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *AdmissionRepo) PurgeDeleted(ctx context.Context, id int64, cutoff time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM admissions WHERE id = ? AND deleted_at IS NOT NULL AND deleted_at <= ?`, id, toMillis(cutoff))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
