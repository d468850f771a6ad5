package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/controller"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/middleware"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/observability"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// StoreChecker is ready when the database answers a ping
type StoreChecker struct {
	DB *gorm.DB
}

// CheckReadiness pings the store
func (s StoreChecker) CheckReadiness(ctx context.Context) error {
	return repository.Ping(ctx, s.DB)
}

// Handlers bundles everything the router mounts
type Handlers struct {
	Analytics *controller.AnalyticsController
	Data      *controller.DataController
	Ingest    *controller.IngestController
	Auth      *controller.AuthController
	Locations *controller.LocationController
	Weather   *controller.WeatherController

	Authenticator middleware.Authenticator
	Metrics       *observability.Metrics
	Ready         ReadinessChecker
}

// NewRouter wires middleware and routes onto a gin engine
func NewRouter(h Handlers, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.StructuredLoggingMiddleware(logger))
	if h.Metrics != nil {
		r.Use(middleware.RequestMetrics(h.Metrics))
	}

	r.GET("/healthz", handleHealth)
	r.GET("/readyz", handleReady(h.Ready))
	r.GET("/metrics", middleware.MetricsHandler())

	requireAuth := middleware.RequireAuth(h.Authenticator, logger)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
		auth.POST("/logout", requireAuth, h.Auth.Logout)
		auth.GET("/me", requireAuth, h.Auth.Me)

		api.GET("/water_quality_data", h.Data.GetWaterQualityData)
		api.GET("/provinces", h.Data.GetProvinces)
		api.GET("/basins", h.Data.GetBasins)
		api.GET("/water_quality_history", h.Data.GetWaterQualityHistory)
		api.GET("/locations", h.Locations.List)

		data := api.Group("/data", requireAuth)
		data.GET("/statistics", h.Analytics.GetStatistics)
		data.GET("/correlation", h.Analytics.GetCorrelation)
		data.GET("/trend", h.Analytics.GetTrend)
		data.GET("/clustering", h.Analytics.GetClustering)
		data.GET("/report", h.Analytics.GetReport)
		data.GET("/export", h.Analytics.Export)
		data.POST("/upload", h.Ingest.Upload)

		wx := api.Group("/weather", requireAuth)
		wx.GET("/current", h.Weather.GetCurrent)
		wx.GET("/forecast", h.Weather.GetForecast)

		admin := api.Group("/admin", requireAuth, middleware.RequireRole(model.RoleAdmin))
		admin.GET("/users", h.Auth.ListUsers)
		admin.POST("/users", h.Auth.CreateUser)
		admin.DELETE("/users/:id", h.Auth.DeleteUser)
		admin.GET("/ingestion_runs", h.Ingest.ListRuns)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "not found"})
	})
	return r
}

// Server owns the HTTP listener
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server for handler. Write timeouts are generous
// because exports and uploads stream whole files.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
