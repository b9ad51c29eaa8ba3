package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// UserRepo mirrors the 'users' table.  Emails are stored lower-cased.
type UserRepo struct {
	q querier
}

const userColumns = `id, full_name, email, mobile, password_hash, role, category, created_at, last_login`

func scanUser(row rowScanner) (model.User, error) {
	var (
		u              model.User
		role, category string
		createdAt      int64
		lastLogin      sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Mobile, &u.PasswordHash, &role, &category, &createdAt, &lastLogin); err != nil {
		return model.User{}, err
	}
	u.Role, u.Category = model.Role(role), model.Category(category)
	u.CreatedAt = fromMillis(createdAt)
	u.LastLogin = nullMillis(lastLogin)
	return u, nil
}

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (int64, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (full_name, email, mobile, password_hash, role, category, created_at) VALUES (?,?,?,?,?,?,?)`,
		u.FullName, u.Email, u.Mobile, u.PasswordHash, string(u.Role), string(u.Category), toMillis(u.CreatedAt))
	if err != nil {
		if isDuplicate(err) {
			return 0, model.ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = id
	return id, nil
}

// GetByEmail fetches a user by normalized email within one category.
func (r *UserRepo) GetByEmail(ctx context.Context, email string, category model.Category) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=? AND category=? LIMIT 1`, email, string(category)))
	if err != nil {
		return model.User{}, notFound(err, model.ErrUserNotFound)
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id))
	if err != nil {
		return model.User{}, notFound(err, model.ErrUserNotFound)
	}
	return u, nil
}

// Categories lists the categories an email is registered under.
func (r *UserRepo) Categories(ctx context.Context, email string) ([]model.Category, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT category FROM users WHERE email=? ORDER BY category`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Category
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, model.Category(c))
	}
	return out, rows.Err()
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `UPDATE users SET last_login=? WHERE id=?`, toMillis(at), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
