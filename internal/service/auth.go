package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
	"github.com/iliyamo/smartcity-intake/internal/utils"
)

// AuthConfig carries the token and hashing settings.
type AuthConfig struct {
	JWTSecret    string
	AccessTTLMin int
	BcryptCost   int
}

// AuthService registers accounts and issues access tokens.  An email may
// hold one account per intake category.
type AuthService struct {
	users ports.UserStore
	cfg   AuthConfig
	log   *zap.Logger
	now   func() time.Time
}

func NewAuthService(users ports.UserStore, cfg AuthConfig, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, cfg: cfg, log: log, now: time.Now}
}

// Registration is the sign-up payload.
type Registration struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
	Category string `json:"category"`
}

// Session is a user together with a freshly issued token.
type Session struct {
	User    model.User
	Token   string
	Expires time.Time
}

func (s *AuthService) Register(ctx context.Context, in Registration) (Session, error) {
	u, err := s.create(ctx, in, model.RoleUser)
	if err != nil {
		return Session{}, err
	}
	return s.issue(u)
}

// CreateAdmin registers an administrator.  Callers must already be admins.
func (s *AuthService) CreateAdmin(ctx context.Context, in Registration) (model.User, error) {
	u, err := s.create(ctx, in, model.RoleAdmin)
	if err != nil {
		return model.User{}, err
	}
	s.log.Info("admin account created", zap.String("email", u.Email), zap.String("category", string(u.Category)))
	return u, nil
}

// EnsureAdmin creates the bootstrap admin in every category where the email
// is not yet registered.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	for _, c := range []model.Category{model.CategoryHostel, model.CategorySchool} {
		_, err := s.create(ctx, Registration{FullName: "Administrator", Email: email, Password: password, Category: string(c)}, model.RoleAdmin)
		if err != nil && !errors.Is(err, ErrDuplicate) {
			return err
		}
	}
	return nil
}

func (s *AuthService) create(ctx context.Context, in Registration, role model.Role) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return model.User{}, validation("valid email required")
	}
	category, ok := model.ParseCategory(in.Category)
	if !ok {
		return model.User{}, validation("category must be hostel or school")
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, utils.ErrWeakPassword) {
			return model.User{}, validation("password must be at least %d characters", utils.MinPasswordLen)
		}
		return model.User{}, classify("hash password", err)
	}
	u := model.User{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		Mobile:       strings.TrimSpace(in.Mobile),
		PasswordHash: hash,
		Role:         role,
		Category:     category,
		CreatedAt:    s.now().UTC(),
	}
	if _, err := s.users.Create(ctx, &u); err != nil {
		return model.User{}, classify("create user", err)
	}
	return u, nil
}

// Login checks the credentials for one category.  When category is empty
// and the email is registered under a single category, that one is used.
func (s *AuthService) Login(ctx context.Context, email, password, category string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, validation("email/password required")
	}
	cat, ok := model.ParseCategory(category)
	if strings.TrimSpace(category) == "" {
		cats, err := s.users.Categories(ctx, email)
		if err != nil {
			return Session{}, classify("lookup categories", err)
		}
		switch len(cats) {
		case 0:
			return Session{}, ErrUnauthorized
		case 1:
			cat, ok = cats[0], true
		default:
			return Session{}, validation("email is registered for several categories, choose one")
		}
	}
	if !ok {
		return Session{}, validation("category must be hostel or school")
	}

	u, err := s.users.GetByEmail(ctx, email, cat)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, classify("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrUnauthorized
	}
	at := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, u.ID, at); err != nil {
		s.log.Warn("record last login failed", zap.Int64("user_id", u.ID), zap.Error(err))
	} else {
		u.LastLogin = &at
	}
	return s.issue(u)
}

// Me returns the account behind an authenticated request.
func (s *AuthService) Me(ctx context.Context, id int64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, classify("load user", err)
	}
	return u, nil
}

func (s *AuthService) issue(u model.User) (Session, error) {
	tok, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, string(u.Role), string(u.Category), s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, classify("issue token", err)
	}
	return Session{User: u, Token: tok.Token, Expires: tok.Exp}, nil
}
