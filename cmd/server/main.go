// @title           Plan Store Fulfillment API
// @version         1.0.0
// @description     Backend API for the house-plan storefront's order fulfillment pipeline. Generates per-order deliverable archives (renders, CAD, PDF documentation), stores them in object storage, and serves status polling and signed download URLs.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"log"
	"net/http"

	"planstore-backend/internal/config"
	"planstore-backend/internal/database"
	"planstore-backend/internal/fulfillment"
	"planstore-backend/internal/handlers"
	"planstore-backend/internal/middleware"
	"planstore-backend/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbClient, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database client: %v", err)
	}
	defer dbClient.Close()

	if err := database.NewMigrator(dbClient.DB()).Run(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully")

	objectStore, err := storage.New(storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}
	if err := objectStore.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("Failed to ensure storage bucket: %v", err)
	}

	pipeline := fulfillment.NewPipeline(dbClient, objectStore,
		fulfillment.DefaultGenerators(), cfg.GenerationTimeout, cfg.FileRetention)

	janitor := fulfillment.NewJanitor(dbClient, objectStore, cfg.CleanupInterval)
	go janitor.Run(context.Background())

	statusHandler := handlers.NewStatusHandler(dbClient)
	filesHandler := handlers.NewFilesHandler(dbClient, objectStore, cfg.DownloadURLTTL)
	regenerateHandler := handlers.NewRegenerateHandler(dbClient, pipeline)
	webhookHandler := handlers.NewPaymentWebhookHandler(cfg, dbClient, pipeline)

	router := gin.Default()

	// Health check (no auth)
	router.GET("/health", handlers.HealthHandler)

	// API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	api.GET("/orders/:order_id/status", statusHandler.GetStatus)
	api.GET("/orders/:order_id/files", filesHandler.GetFiles)
	api.GET("/files/:file_id/download", filesHandler.Download)
	api.POST("/orders/:order_id/regenerate", regenerateHandler.Regenerate)

	// Payment webhook (no auth, shared token)
	router.POST("/api/v1/webhooks/payments", webhookHandler.HandlePaymentWebhook)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
