package ports

import (
	"context"
	"time"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// UserStore persists accounts.  Create returns model.ErrEmailExists when the
// (email, category) pair is taken.
type UserStore interface {
	Create(ctx context.Context, u *model.User) (int64, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	GetByEmail(ctx context.Context, email string, category model.Category) (model.User, error)
	// Categories lists every category the email is registered under.
	Categories(ctx context.Context, email string) ([]model.Category, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}
