package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	amqp "github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"shopapi/internal/config"
	"shopapi/internal/handlers"
	"shopapi/internal/middleware"
	"shopapi/internal/models"
	"shopapi/internal/repositories"
	"shopapi/internal/services"
	"shopapi/internal/storage"
	"shopapi/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	// --- Database ---
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.ProductImage{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- Storage backend ---
	// Selected once here and injected; nothing branches on the driver per call.
	store, err := newStorageBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}

	// --- RabbitMQ (optional) ---
	var events services.EventPublisher
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		events = mqClient

		go func() {
			log.Println("Starting product events consumer...")
			err := mqClient.ConsumeProductEvents(func(msg amqp.Delivery) error {
				log.Printf("Product event %s (tag %d): %s", msg.Type, msg.DeliveryTag, string(msg.Body))
				return nil
			})
			if err != nil {
				log.Printf("Product events consumer stopped: %v", err)
			}
		}()
	} else {
		log.Println("RABBITMQ_URL not set, product events disabled")
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)

	// --- Services ---
	authService := services.NewAuthService(userRepo, services.TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	productService := services.NewProductService(productRepo, store, events)
	userService := services.NewUserService(userRepo)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	userHandler := handlers.NewUserHandler(userService)

	// --- Fiber app ---
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.NewErrorHandler(cfg.IsDevelopment()),
		BodyLimit:    storage.MaxFiles*storage.MaxFileSize + 1024*1024,
	})
	app.Use(logger.New())

	if cfg.StorageDriver == config.StorageLocal {
		app.Static("/uploads", cfg.UploadDir)
	}

	requireAuth := middleware.RequireAuth(authService, userRepo)
	optionalAuth := middleware.OptionalAuth(authService, userRepo)

	api := app.Group("/api")
	authHandler.RegisterRoutes(api, requireAuth)
	productHandler.RegisterRoutes(api, requireAuth, optionalAuth)
	userHandler.RegisterRoutes(api, requireAuth)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success":   true,
			"message":   "Server is running",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// --- Start HTTP server ---
	log.Printf("Starting server on %s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.Port); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

func newStorageBackend(cfg *config.Config) (storage.Backend, error) {
	if cfg.StorageDriver == config.StorageS3 {
		return storage.NewS3Backend(context.Background(), storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	return storage.NewLocalBackend(cfg.UploadDir, cfg.BaseURL)
}
