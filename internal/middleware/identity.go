package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxUserID).(int64)
	return id, ok && id > 0
}

// Role returns the role claim, or "" for anonymous requests.
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

// Category returns the category claim, or "".
func Category(c echo.Context) string {
	s, _ := c.Get(CtxCategory).(string)
	return s
}

// subject identifies the caller in cache and rate-limit keys.
func subject(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatInt(id, 10)
	}
	return "anon"
}
