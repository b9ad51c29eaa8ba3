package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartcity-intake/internal/middleware"
	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/service"
)

// AuthHandler exposes registration, login and the current-user lookup.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Category string `json:"category"`
}

type userPart struct {
	ID        int64      `json:"id"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Mobile    string     `json:"mobile,omitempty"`
	Role      string     `json:"role"`
	Category  string     `json:"category"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Role:      string(u.Role),
		Category:  string(u.Category),
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req service.Registration
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.auth.Register(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, authResp{User: toUserPart(s.User), Token: s.Token, Expires: s.Expires})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.auth.Login(ctx, req.Email, req.Password, req.Category)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, authResp{User: toUserPart(s.User), Token: s.Token, Expires: s.Expires})
}

func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	u, err := h.auth.Me(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// CreateAdmin registers another administrator.  The route is admin-only.
func (h *AuthHandler) CreateAdmin(c echo.Context) error {
	var req service.Registration
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	u, err := h.auth.CreateAdmin(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toUserPart(u))
}
