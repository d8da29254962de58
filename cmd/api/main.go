package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/sjperalta/fintera-financing/internal/config"
	"github.com/sjperalta/fintera-financing/internal/database"
	"github.com/sjperalta/fintera-financing/internal/handlers"
	"github.com/sjperalta/fintera-financing/internal/jobs"
	"github.com/sjperalta/fintera-financing/internal/middleware"
	"github.com/sjperalta/fintera-financing/internal/repository"
	"github.com/sjperalta/fintera-financing/internal/services"
	"github.com/sjperalta/fintera-financing/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Fintera Financing API
// @version 1.0
// @description Installment financing and payment reconciliation for Fintera sales

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry (GlitchTip) when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, database.Options{
		Production:    cfg.IsProduction(),
		SlowThreshold: cfg.SlowQueryTime,
	})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	repos := repository.NewRepositories(db)
	tx := repository.NewTxManager(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	svcs := services.NewServices(repos, tx, worker, cfg)

	if err := svcs.Job.ScheduleMoratorySweep(cfg.MoratoryCron, cfg.MoratoryInterval); err != nil {
		logger.Error("Failed to schedule moratory sweep", "cron", cfg.MoratoryCron, "error", err)
		os.Exit(1)
	}
	logger.Info("Scheduled recurring jobs", "moratory_cron", cfg.MoratoryCron)

	h := handlers.NewHandlers(svcs, pinger(db))
	router := setupRouter(h, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// In-flight sweeps finish before the pool closes
	worker.Shutdown()
	logger.Info("Background worker stopped")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func pinger(db *gorm.DB) handlers.Pinger {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health.Index)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Stateless calculators
			financing := protected.Group("/financing")
			{
				financing.POST("/amortization", h.Financing.Amortization)
				financing.POST("/custom_schedule", h.Financing.CustomSchedule)
				financing.POST("/moratory", h.Financing.Moratory)
			}

			sales := protected.Group("/sales/:sale_id")
			{
				sales.GET("/installments", h.Sale.Installments)
				sales.GET("/installments/export", h.Sale.Export)
				sales.GET("/ledger", h.Sale.Ledger)
				sales.GET("/moratory", h.Sale.MoratorySummary)

				sales.POST("/approve", middleware.RequireAdmin(), h.Sale.Approve)
				sales.POST("/reject", middleware.RequireAdmin(), h.Sale.Reject)
				sales.POST("/cancel", middleware.RequireAdmin(), h.Sale.Cancel)
				sales.POST("/moratory/recalculate", middleware.RequireAdmin(), h.Sale.RecalculateMoratory)
				sales.GET("/audit", middleware.RequireAdmin(), h.Audit.SaleHistory)
			}

			installments := protected.Group("/installments/:installment_id/payments")
			{
				installments.GET("", h.Payment.Index)
				installments.POST("", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleSeller), h.Payment.Create)
			}

			// Admin-only routes
			admin := protected.Group("/jobs")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/status", h.Job.Status)
				admin.POST("/moratory_sweep", h.Job.TriggerMoratorySweep)
			}
		}
	}

	return router
}
