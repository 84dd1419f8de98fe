package router // router wires URL paths to handler implementations

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/utsavfest/symposium-backend/internal/config"
	"github.com/utsavfest/symposium-backend/internal/handler"
	"github.com/utsavfest/symposium-backend/internal/middleware"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Cfg      config.Config
	Redis    *redis.Client // nil disables rate limiting and response caching
	Auth     *handler.AuthHandler
	Browse   *handler.BrowseHandler
	Checkout *handler.CheckoutHandler
	Status   *handler.StatusHandler
	Admin    *handler.AdminHandler
}

// RegisterRoutes attaches all endpoints to the Echo instance.
//
// Public routes carry the Redis response cache (catalog data changes
// rarely); auth routes carry the token-bucket rate limiter; /v1
// routes require a valid access token and /v1/admin additionally the
// ADMIN role.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	rate := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), d.Redis)

	pub := e.Group("/v1", cache)
	pub.GET("/events", d.Browse.ListEvents)
	pub.GET("/passes", d.Browse.ListPasses)
	pub.GET("/accommodation", d.Browse.Accommodation)

	auth := e.Group("/v1/auth", rate)
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/forgot", d.Auth.Forgot)
	auth.POST("/reset", d.Auth.Reset)

	api := e.Group("/v1", middleware.JWTAuth(d.Cfg.JWTSecret))
	api.POST("/auth/logout", d.Auth.Logout)
	api.POST("/checkout", d.Checkout.Submit, rate)
	api.GET("/me/registrations", d.Status.MyRegistrations)
	api.GET("/me/booking", d.Status.MyBooking)

	admin := api.Group("/admin", middleware.RequireRole("ADMIN"))
	admin.POST("/verify/transaction/:txn", d.Admin.VerifyTransaction)
	admin.POST("/verify/event", d.Admin.VerifyEvent)
	admin.POST("/verify/pass", d.Admin.VerifyPass)
	admin.POST("/unverify", d.Admin.Unverify)
	admin.POST("/booking/:userID/verify", d.Admin.VerifyBooking)
	admin.POST("/booking/:userID/reject", d.Admin.RejectBooking)
	admin.POST("/recover/:userID", d.Admin.Recover)
	admin.GET("/registrations/event/:id", d.Admin.RegistrationsByEvent)
	admin.GET("/bookings", d.Admin.ListBookings)
	admin.GET("/proof", d.Admin.Proof)
	admin.POST("/rounds", d.Admin.SetRounds)
}
