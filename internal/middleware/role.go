package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole admits requests whose role claim is one of roles.  It must run
// after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access required"})
			}
			return next(c)
		}
	}
}

// RequireCategory admits accounts registered under category.  Admins pass
// regardless of their category.
func RequireCategory(category, adminRole string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Category(c) != category && Role(c) != adminRole {
				return c.JSON(http.StatusForbidden, echo.Map{"error": category + " access required"})
			}
			return next(c)
		}
	}
}
