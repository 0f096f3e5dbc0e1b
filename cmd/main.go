package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"

	"vitrina/internal/caching"
	"vitrina/internal/config"
	appdb "vitrina/internal/database"
	"vitrina/internal/handlers"
	"vitrina/internal/jobs/background"
	"vitrina/internal/logger"
	appMiddleware "vitrina/internal/middleware"
	"vitrina/internal/render"
	"vitrina/internal/repositories"
	"vitrina/internal/services"
	"vitrina/pkg/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg := config.Load()

	zapLogger, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Database.URL == "" {
		zapLogger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	// Migrations run over database/sql; the app itself uses the pgx pool.
	migrationDB, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		zapLogger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := appdb.RunMigrations(migrationDB, zapLogger); err != nil {
		zapLogger.Fatal("Migrations failed", zap.Error(err))
	}
	migrationDB.Close()

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	cacheSvc := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	minioSvc, err := services.NewMinioService(cfg.Minio)
	if err != nil {
		zapLogger.Fatal("Failed to initialize object store", zap.Error(err))
	}
	if err := minioSvc.EnsureBucketExists(ctx); err != nil {
		zapLogger.Warn("Bucket check failed", zap.Error(err))
	}

	renderer, err := render.New()
	if err != nil {
		zapLogger.Fatal("Failed to parse site templates", zap.Error(err))
	}

	// Repositories
	tenantRepo := repositories.NewTenantRepo(pool)
	productRepo := repositories.NewProductRepo(pool)

	// Services
	githubSvc := services.NewGitHubService(cfg.GitHub, zapLogger)
	imageSvc := services.NewImageService(minioSvc, cfg.Thumbnail, zapLogger)
	catalogSvc := services.NewCatalogService(productRepo, cacheSvc, zapLogger)
	tenantSvc := services.NewTenantService(tenantRepo, cacheSvc, cfg.JWT, cfg.GitHub.Branch, zapLogger)
	publisherSvc := services.NewPublisherService(githubSvc, zapLogger)
	siteSvc := services.NewSiteService(catalogSvc, renderer, publisherSvc, githubSvc, minioSvc, cfg.AssetsDir, zapLogger)

	// Handlers
	wizardHandlers := handlers.NewWizardHandlers(tenantSvc, imageSvc, catalogSvc, siteSvc)
	adminHandlers := handlers.NewAdminHandlers(tenantSvc, catalogSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	// Background jobs
	scheduler, err := background.NewJobScheduler(catalogSvc, tenantRepo, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create job scheduler", zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		zapLogger.Fatal("Failed to start background jobs", zap.Error(err))
	}
	defer scheduler.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.CORS())

	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/ready", healthHandlers.ReadinessCheck)

	api := e.Group("/api")

	wizard := api.Group("/wizard")
	wizard.POST("/start", wizardHandlers.StartWizard)
	wizard.POST("/:session_id/images", wizardHandlers.UploadImages)
	wizard.POST("/:session_id/catalog", wizardHandlers.SyncCatalog)
	wizard.POST("/:session_id/publish", wizardHandlers.PublishSite)

	admin := api.Group("/admin")
	admin.POST("/signup", adminHandlers.Signup)
	admin.POST("/login", adminHandlers.Login)

	protected := admin.Group("", appMiddleware.AdminJWT(cfg.JWT.Secret))
	protected.GET("/products", adminHandlers.ListProducts)
	protected.PUT("/products/:id_base/price", adminHandlers.UpdatePrice)
	protected.PUT("/products/:id_base/sizes", adminHandlers.UpdateSizes)
	protected.PATCH("/products/:id_base", adminHandlers.PatchProduct)

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil {
			zapLogger.Info("Server stopped", zap.Error(err))
		}
	}()
	zapLogger.Info("Server started", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Shutdown error", zap.Error(err))
	}
	zapLogger.Info("Server shut down")
}
