package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"prodcat/internal/auth"
	"prodcat/internal/handlers"
	"prodcat/internal/models"
	"prodcat/internal/repositories"
	"prodcat/internal/services"
	"prodcat/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	// Set up Viper to read configuration from environment variables
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("STORE_DRIVER", "memory")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DB", "prodcat")
	viper.SetDefault("POSTGRES_DSN", "host=localhost user=prodcat password=prodcat dbname=prodcat port=5432")
	viper.SetDefault("SQLITE_PATH", "prodcat.db")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("AUTH_MODE", "header")
	viper.SetDefault("JWT_SECRET", "")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")

	// --- Initialize Repository ---
	productRepo, cleanup, err := newProductRepository()
	if err != nil {
		log.Fatalf("Failed to initialize product repository: %v", err)
	}
	defer cleanup()

	// --- Initialize RabbitMQ Client (optional) ---
	var mqClient *rabbitmq.Client
	if rabbitMQURL := viper.GetString("RABBITMQ_URL"); rabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: rabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()

		// --- Start RabbitMQ Consumer in a Goroutine ---
		// Listens for product lifecycle events. A real deployment would
		// add reconnection and dead-lettering here.
		go func() {
			log.Println("Starting RabbitMQ consumer for product events...")
			messageHandler := func(msg amqp.Delivery) error {
				log.Printf("Received Product Event (Tag: %d): %s", msg.DeliveryTag, string(msg.Body))
				return nil // Return nil to acknowledge
			}
			if consumerErr := mqClient.ConsumeProductEvents(messageHandler); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	} else {
		log.Println("RABBITMQ_URL not set, product event publishing disabled")
	}

	// --- Initialize Role Resolver ---
	var resolver auth.RoleResolver = auth.HeaderRoleResolver{}
	if viper.GetString("AUTH_MODE") == "jwt" {
		secret := viper.GetString("JWT_SECRET")
		if secret == "" {
			log.Fatal("AUTH_MODE=jwt requires JWT_SECRET to be set")
		}
		resolver = auth.NewJWTRoleResolver(secret)
	}

	// --- Initialize Service and Handler ---
	productService := services.NewProductService(productRepo, mqClient)
	productHandler := handlers.NewProductHandler(productService)

	// --- Initialize Fiber App ---
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})

	// --- Middleware ---
	app.Use(logger.New()) // Request logger

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	productHandler.RegisterRoutes(apiV1, resolver)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// newProductRepository builds the repository selected by STORE_DRIVER:
// mongo (document store, the primary backend), postgres, sqlite, or an
// in-memory store for local development.
func newProductRepository() (repositories.ProductRepository, func(), error) {
	noop := func() {}

	switch driver := viper.GetString("STORE_DRIVER"); driver {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(viper.GetString("MONGO_URI")))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		repo := repositories.NewMongoProductRepository(client.Database(viper.GetString("MONGO_DB")))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, noop, err
		}
		cleanup := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("Error during MongoDB disconnect: %v", err)
			}
		}
		return repo, cleanup, nil

	case "postgres":
		db, err := gorm.Open(postgres.Open(viper.GetString("POSTGRES_DSN")), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		if err := db.AutoMigrate(&models.Product{}); err != nil {
			return nil, noop, fmt.Errorf("failed to auto-migrate database: %w", err)
		}
		return repositories.NewGORMProductRepository(db), noop, nil

	case "sqlite":
		db, err := gorm.Open(sqlite.Open(viper.GetString("SQLITE_PATH")), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		if err := db.AutoMigrate(&models.Product{}); err != nil {
			return nil, noop, fmt.Errorf("failed to auto-migrate database: %w", err)
		}
		return repositories.NewGORMProductRepository(db), noop, nil

	case "memory":
		repo := repositories.NewMockProductRepository()
		seedProducts(repo)
		return repo, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

// seedProducts populates the in-memory repository with some initial data so
// the API is usable out of the box during local development.
func seedProducts(repo repositories.ProductRepository) {
	discount := 999.99
	products := []models.Product{
		{SKU: "LAPTOP-15", Name: "Laptop", Description: "High performance laptop", Category: "electronics", Type: models.TypePublic, Price: 1200.00, DiscountPrice: &discount, Quantity: 10},
		{SKU: "KB-MECH-87", Name: "Keyboard", Description: "Mechanical keyboard", Category: "accessories", Type: models.TypePublic, Price: 75.00, Quantity: 25},
		{SKU: "MOUSE-ERGO", Name: "Mouse", Description: "Ergonomic wireless mouse", Category: "accessories", Type: models.TypePrivate, Price: 25.00, Quantity: 50},
	}

	for i := range products {
		if err := repo.Create(context.Background(), &products[i]); err != nil {
			log.Printf("Error seeding product %s: %v", products[i].Name, err)
		} else {
			log.Printf("Seeded product: %s (ID: %s)", products[i].Name, products[i].ID)
		}
	}
}
