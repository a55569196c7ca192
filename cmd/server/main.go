package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/clients"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/config"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/database"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/funnel"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/handlers"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/logger"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/middleware"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/repository"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting quotation funnel API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Create database connection pool
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Name,
	})

	// Shared platform client and funnel session manager
	platform := clients.NewPlatform(cfg.Platform)
	funnelRepo := repository.NewFunnelRepository(db)
	manager := funnel.NewManager(platform, cfg.Quotes, funnelRepo, log)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Health check routes
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Funnel and address routes
	funnelHandler := handlers.NewFunnelHandler(manager)
	addressHandler := handlers.NewAddressHandler(platform)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/addresses/:level", addressHandler.Children)

		funnels := v1.Group("/funnel")
		{
			funnels.POST("", funnelHandler.Create)
			funnels.GET("/:id", funnelHandler.Status)
			funnels.DELETE("/:id", funnelHandler.Delete)

			funnels.POST("/:id/identity", funnelHandler.SubmitIdentity)
			funnels.POST("/:id/identity/auto-advance", funnelHandler.AutoAdvance)
			funnels.POST("/:id/identity/verify", funnelHandler.VerifyCode)
			funnels.PUT("/:id/profile", funnelHandler.CompleteProfile)

			funnels.GET("/:id/properties", funnelHandler.ListProperties)
			funnels.PUT("/:id/property/strategy", funnelHandler.SetStrategy)
			funnels.PUT("/:id/property/selection", funnelHandler.SelectProperty)
			funnels.POST("/:id/property/address", funnelHandler.SelectLink)
			funnels.POST("/:id/property/query-address", funnelHandler.QueryAddress)
			funnels.POST("/:id/property/query-old-policy", funnelHandler.QueryOldPolicy)
			funnels.PUT("/:id/property/policy-number", funnelHandler.SetPolicyNumber)
			funnels.PUT("/:id/property/structural", funnelHandler.SetStructural)
			funnels.POST("/:id/property", funnelHandler.SubmitProperty)

			funnels.GET("/:id/quotes", funnelHandler.Quotes)
			funnels.PUT("/:id/quotes/:quoteID/installment", funnelHandler.SelectInstallment)
			funnels.POST("/:id/purchase", funnelHandler.Purchase)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown: stop live pollers first, then drain HTTP
	log.Info("Shutting down server...", nil)
	manager.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
