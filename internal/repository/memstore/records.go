package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

type admissions struct{ view }

func (a admissions) Insert(_ context.Context, ad *model.Admission) (int64, error) {
	if !ad.Status.IsValid() {
		return 0, model.ErrInvalidStatus
	}
	var id int64
	err := a.write(func(st *state) error {
		st.nextAdmission++
		id = st.nextAdmission
		row := *ad
		row.ID = id
		st.admissions[id] = row
		return nil
	})
	if err == nil {
		ad.ID = id
	}
	return id, err
}

func (a admissions) GetByID(_ context.Context, id int64) (model.Admission, error) {
	var out model.Admission
	err := a.read(func(st *state) error {
		row, ok := st.admissions[id]
		if !ok {
			return model.ErrAdmissionNotFound
		}
		out = row
		return nil
	})
	return out, err
}

func (a admissions) UpdateFields(_ context.Context, id int64, p model.AdmissionPatch) error {
	if p.Status != nil && !p.Status.IsValid() {
		return model.ErrInvalidStatus
	}
	return a.write(func(st *state) error {
		row, ok := st.admissions[id]
		if !ok {
			return model.ErrAdmissionNotFound
		}
		if p.Form != nil {
			row.Form = *p.Form
		}
		if p.Documents != nil {
			row.Documents = *p.Documents
		}
		if p.Status != nil {
			row.Status = *p.Status
		}
		if p.Deleted != nil {
			row.DeletedAt = nil
			if *p.Deleted {
				at := p.DeletedAt
				row.DeletedAt = &at
			}
		}
		if !p.UpdatedAt.IsZero() {
			row.UpdatedAt = p.UpdatedAt
		}
		st.admissions[id] = row
		return nil
	})
}

func (a admissions) List(_ context.Context, deleted bool) ([]model.Admission, error) {
	var out []model.Admission
	err := a.read(func(st *state) error {
		for _, row := range st.admissions {
			if row.IsDeleted() == deleted {
				out = append(out, row)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (a admissions) HardDelete(_ context.Context, id int64) error {
	return a.write(func(st *state) error {
		if _, ok := st.admissions[id]; !ok {
			return model.ErrAdmissionNotFound
		}
		delete(st.admissions, id)
		return nil
	})
}

func (a admissions) SetDeleted(_ context.Context, id int64, deleted bool, at time.Time) (bool, error) {
	var changed bool
	err := a.write(func(st *state) error {
		row, ok := st.admissions[id]
		if !ok || row.IsDeleted() == deleted {
			return nil
		}
		row.DeletedAt = nil
		if deleted {
			row.DeletedAt = &at
		}
		row.UpdatedAt = at
		st.admissions[id] = row
		changed = true
		return nil
	})
	return changed, err
}

func (a admissions) PurgeDeleted(_ context.Context, id int64, cutoff time.Time) (bool, error) {
	var gone bool
	err := a.write(func(st *state) error {
		row, ok := st.admissions[id]
		if !ok || row.DeletedAt == nil || row.DeletedAt.After(cutoff) {
			return nil
		}
		delete(st.admissions, id)
		gone = true
		return nil
	})
	return gone, err
}

type users struct{ view }

func (u users) Create(_ context.Context, usr *model.User) (int64, error) {
	email := strings.ToLower(strings.TrimSpace(usr.Email))
	var id int64
	err := u.write(func(st *state) error {
		for _, row := range st.users {
			if row.Email == email && row.Category == usr.Category {
				return model.ErrEmailExists
			}
		}
		st.nextUserID++
		id = st.nextUserID
		row := *usr
		row.ID = id
		row.Email = email
		st.users[id] = row
		return nil
	})
	if err == nil {
		usr.ID = id
		usr.Email = email
	}
	return id, err
}

func (u users) GetByID(_ context.Context, id int64) (model.User, error) {
	var out model.User
	err := u.read(func(st *state) error {
		row, ok := st.users[id]
		if !ok {
			return model.ErrUserNotFound
		}
		out = row
		return nil
	})
	return out, err
}

func (u users) GetByEmail(_ context.Context, email string, category model.Category) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out model.User
	err := u.read(func(st *state) error {
		for _, row := range st.users {
			if row.Email == email && row.Category == category {
				out = row
				return nil
			}
		}
		return model.ErrUserNotFound
	})
	return out, err
}

func (u users) Categories(_ context.Context, email string) ([]model.Category, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out []model.Category
	err := u.read(func(st *state) error {
		for _, row := range st.users {
			if row.Email == email {
				out = append(out, row.Category)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, err
}

func (u users) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	return u.write(func(st *state) error {
		row, ok := st.users[id]
		if !ok {
			return model.ErrUserNotFound
		}
		row.LastLogin = &at
		st.users[id] = row
		return nil
	})
}
