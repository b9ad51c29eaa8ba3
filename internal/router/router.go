// Package router registers the HTTP routes and their middleware chains.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/config"
	"github.com/iliyamo/smartcity-intake/internal/handler"
	"github.com/iliyamo/smartcity-intake/internal/middleware"
	"github.com/iliyamo/smartcity-intake/internal/model"
)

// Deps is everything the routes need.  Redis, Metrics and DB may be nil.
type Deps struct {
	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Log       *zap.Logger
	Metrics   http.Handler
	DB        handler.Pinger

	Auth       *handler.AuthHandler
	Rooms      *handler.RoomHandler
	Bookings   *handler.BookingHandler
	Admissions *handler.AdmissionHandler
	Files      *handler.FileHandler
}

const admin = string(model.RoleAdmin)

// Register wires every route onto e.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.DB))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}
	if d.Files != nil {
		e.GET("/uploads/*", d.Files.Serve)
	}

	limit := middleware.RateLimit(d.RateLimit, d.Redis, d.Log)
	auth := middleware.JWTAuth(d.JWTSecret)
	isAdmin := middleware.RequireRole(admin)

	registerAuth(e, d, limit, auth, isAdmin)
	registerHostel(e, d, limit, auth, isAdmin)
	registerSchool(e, d, limit, auth, isAdmin)
}

func registerAuth(e *echo.Echo, d Deps, limit, auth, isAdmin echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register, limit)
	g.POST("/login", d.Auth.Login, limit)
	g.POST("/create-admin", d.Auth.CreateAdmin, auth, isAdmin)

	e.GET("/v1/me", d.Auth.Me, auth)
}

func registerHostel(e *echo.Echo, d Deps, limit, auth, isAdmin echo.MiddlewareFunc) {
	cached := middleware.ResponseCache(d.Cache, d.Redis)
	invalidate := middleware.InvalidateCache(d.Cache, d.Redis, d.Log)
	hostel := middleware.RequireCategory(string(model.CategoryHostel), admin)

	// availability is public and read-heavy; every write below drops the cache
	e.GET("/v1/rooms", d.Rooms.List, cached)
	e.GET("/v1/rooms/:id/beds", d.Rooms.Beds, cached)

	// submission is open to the public; the limiter is its only guard
	e.POST("/v1/bookings", d.Bookings.Submit, limit, invalidate)
	e.GET("/v1/user/bookings/:email", d.Bookings.ByEmail, auth, hostel)

	a := e.Group("/v1/admin/hostel", auth, isAdmin, invalidate)
	a.GET("/rooms", d.Rooms.Detailed)
	a.GET("/bookings", d.Bookings.AdminList)
	a.GET("/bookings/:id", d.Bookings.Get)
	a.PUT("/bookings/:id", d.Bookings.Update)
	a.PATCH("/bookings/:id/bed", d.Bookings.Reassign)
	a.PATCH("/bookings/:id/verify", d.Bookings.Verify)
	a.PATCH("/bookings/:id/reject", d.Bookings.Reject)
	a.DELETE("/bookings/:id", d.Bookings.SoftDelete)
	a.GET("/recycle-bin", d.Bookings.RecycleBin)
	a.PATCH("/recycle-bin/:id/restore", d.Bookings.Restore)
	a.DELETE("/recycle-bin/:id", d.Bookings.PermanentDelete)
	a.POST("/recycle-bin/purge", d.Bookings.Purge)
}

func registerSchool(e *echo.Echo, d Deps, limit, auth, isAdmin echo.MiddlewareFunc) {
	e.POST("/v1/admissions", d.Admissions.Submit, limit)

	a := e.Group("/v1/admin/school", auth, isAdmin)
	a.GET("/admissions", d.Admissions.List)
	a.GET("/admissions/trash", d.Admissions.Trash)
	a.POST("/admissions/trash/purge", d.Admissions.Purge)
	a.GET("/admissions/:id", d.Admissions.Get)
	a.PUT("/admissions/:id", d.Admissions.Update)
	a.PUT("/admissions/:id/status", d.Admissions.UpdateStatus)
	a.DELETE("/admissions/:id", d.Admissions.SoftDelete)
	a.PUT("/admissions/:id/restore", d.Admissions.Restore)
	a.DELETE("/admissions/:id/permanent", d.Admissions.PermanentDelete)
}
