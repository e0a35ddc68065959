package http

import (
	"time"

	"kash_budget/internal/http/handlers"
	"kash_budget/internal/http/middleware"
	"kash_budget/internal/service"
	"kash_budget/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the router needs; zero rate limits disable limiting.
type Deps struct {
	Auth   *service.AuthService
	Ledger *service.LedgerService
	Hub    *ws.Hub
	DB     handlers.Pinger

	Version    string
	APIPrefix  string
	CORSOrigin string

	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// NewRouter builds the engine with the global middleware chain and all routes.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestContext(), middleware.AccessLog(), middleware.Metrics(), middleware.CORS(d.CORSOrigin))
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := handlers.NewHandler(d.Auth, d.Ledger)
	healthHandler := handlers.NewHealthHandler(d.DB, d.Version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/health/live", healthHandler.Liveness)
	r.GET("/health/ready", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// live ledger feed
	if d.Hub != nil {
		r.GET("/ws", ws.HandleWS(d.Hub, d.Auth, d.CORSOrigin))
	}

	api := r.Group(d.APIPrefix)
	if d.APIRateLimit > 0 {
		api.Use(middleware.RedisRateLimit("api", d.APIRateLimit, d.APIRateWindow))
	}
	registerAPIRoutes(api, h, d)
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, d Deps) {
	jwt := middleware.JWT(d.Auth)

	auth := api.Group("/auth")
	{
		var authRL []gin.HandlerFunc
		if d.AuthRateLimit > 0 {
			authRL = append(authRL, middleware.RedisRateLimit("auth", d.AuthRateLimit, d.AuthRateWindow))
		}
		auth.POST("/register", append(authRL, h.Register)...)
		auth.POST("/login", append(authRL, h.Login)...)
		auth.GET("/profile", jwt, h.Profile)
	}

	tx := api.Group("/transactions")
	tx.Use(jwt)
	{
		tx.POST("", h.CreateTransaction)
		tx.GET("", h.ListTransactions)
		tx.GET("/:id", h.GetTransaction)
		tx.PATCH("/:id/category", h.UpdateCategory)
		tx.PATCH("/:id/location", h.UpdateLocation)
		tx.DELETE("/:id", h.DeleteTransaction)
	}
}
