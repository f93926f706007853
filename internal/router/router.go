// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/movietix/cinema-booking-api/internal/config"
	"github.com/movietix/cinema-booking-api/internal/handler"
	"github.com/movietix/cinema-booking-api/internal/middleware"
	"github.com/movietix/cinema-booking-api/internal/model"
)

// Deps bundles everything the route table needs.
type Deps struct {
	Cfg       config.Config
	Redis     *redis.Client
	Auth      *handler.AuthHandler
	Browse    *handler.BrowseHandler
	Bookings  *handler.BookingHandler
	Halls     *handler.HallHandler
	Showtimes *handler.ShowtimeHandler
}

// Register sets up all route groups: public catalog (response-cached),
// auth, authenticated user endpoints and the admin surface.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	cacheCfg := config.LoadCacheConfig()
	rl := middleware.RateLimit(config.LoadRateLimitConfig(), d.Redis)
	cache := middleware.ResponseCache(cacheCfg, d.Redis)
	flush := middleware.CacheInvalidate(cacheCfg, d.Redis)

	// Public catalog, no auth.  Read traffic dominates here so responses
	// go through the Redis cache.
	pub := e.Group("/v1", rl)
	pub.GET("/showtimes", d.Browse.ListShowtimes, cache)
	pub.GET("/showtimes/filters", d.Browse.FilterOptions, cache)
	pub.GET("/showtimes/:id/seats", d.Browse.SeatMap)
	pub.GET("/halls/:id/seats", d.Browse.HallSeats, cache)

	// Auth endpoints issue and rotate tokens.
	authGroup := e.Group("/v1/auth", rl)
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)
	authGroup.POST("/refresh", d.Auth.Refresh)

	// Endpoints for any authenticated user.  JWT runs before the rate
	// limiter so budgets are tracked per user, not just per IP.
	user := e.Group("/v1", middleware.JWTAuth(d.Cfg.JWTSecret), rl,
		middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	user.GET("/me", d.Auth.Me)
	user.POST("/auth/logout", d.Auth.Logout)
	user.POST("/bookings", d.Bookings.Create, flush)
	user.GET("/bookings", d.Bookings.ListMine)
	user.PUT("/bookings/:id/seats", d.Bookings.UpdateSeats, flush)
	user.PATCH("/bookings/:id/status", d.Bookings.UpdateStatus, flush)
	user.DELETE("/bookings/:id", d.Bookings.Cancel, flush)
	user.GET("/bookings/:id/ticket", d.Bookings.Ticket)

	// Admin-only management surface.
	admin := e.Group("/v1/admin", middleware.JWTAuth(d.Cfg.JWTSecret), rl,
		middleware.RequireRole(model.RoleAdmin))
	admin.POST("/halls", d.Halls.CreateHall, flush)
	admin.GET("/halls", d.Halls.ListHalls)
	admin.GET("/halls/:id", d.Halls.GetHall)
	admin.POST("/showtimes", d.Showtimes.Create, flush)
	admin.PUT("/showtimes/:id", d.Showtimes.Update, flush)
	admin.DELETE("/showtimes/:id", d.Showtimes.Delete, flush)
}
