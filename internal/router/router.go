package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parking-slot-reservation/internal/handler"
	"github.com/iliyamo/parking-slot-reservation/internal/middleware"
)

// Handlers bundles everything RegisterRoutes mounts.
type Handlers struct {
	Health   echo.HandlerFunc
	Bookings *handler.BookingHandler
	Slots    *handler.SlotHandler
	Admin    *handler.AdminHandler
}

// RegisterRoutes mounts the API on e.  Everything under /v1 requires a
// valid access token; limit throttles authenticated traffic and may be a
// pass-through.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string, limit echo.MiddlewareFunc) {
	e.GET("/healthz", h.Health)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleOperator, middleware.RoleCustomer))
	v1.Use(limit)

	// Slot browsing
	v1.GET("/slots", h.Slots.List)
	v1.GET("/slots/:floor", h.Slots.List)

	// Booking lifecycle
	b := v1.Group("/bookings")
	b.POST("", h.Bookings.Create)
	b.GET("/:id", h.Bookings.Get)
	b.PATCH("/:id/advance", h.Bookings.Advance)
	b.PATCH("/:id/checkin", h.Bookings.CheckIn)
	b.PATCH("/:id/checkout", h.Bookings.CheckOut)

	admin := v1.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))
	admin.POST("/sweep", h.Admin.Sweep)
}
