package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ma5621/perf-working/internal/cache"
	catalogclient "github.com/ma5621/perf-working/internal/catalog/client"
	cataloghttp "github.com/ma5621/perf-working/internal/catalog/http"
	catalogrepo "github.com/ma5621/perf-working/internal/catalog/repository"
	h "github.com/ma5621/perf-working/internal/http"
	"github.com/ma5621/perf-working/internal/publisher"
	"github.com/ma5621/perf-working/internal/repository"
	"github.com/ma5621/perf-working/internal/service"
)

type Config struct {
	HTTPPort        string
	RedisAddr       string
	RedisPassword   string
	CatalogDBPath   string
	MigrationsPath  string
	CatalogBaseURL  string
	KafkaBrokers    string
	AdminUsername   string
	AdminPassword   string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	port := getEnv("HTTP_PORT", "8080")
	return &Config{
		HTTPPort:        port,
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		CatalogDBPath:   getEnv("CATALOG_DB_PATH", "catalog.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./internal/catalog/repository/migrations"),
		CatalogBaseURL:  getEnv("CATALOG_BASE_URL", "http://localhost:"+port),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadConfig()
	ctx := context.Background()

	// Catalog storage
	catRepo, err := catalogrepo.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer catRepo.Close()
	if err := catRepo.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Printf("Catalog database ready at %s", cfg.CatalogDBPath)

	// Redis holds carts, notes and the settings cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	// The cart engine talks to the catalog over HTTP, even when both
	// run in the same process, so the catalog can move out later.
	apiClient := catalogclient.New(cfg.CatalogBaseURL, 10*time.Second)

	cartService := service.NewCartService(repository.NewRedisRepository(redisClient))
	reconciler := service.NewReconciler(cartService, apiClient)
	settings := service.NewSettingsProvider(apiClient, cache.NewSettingsCache(redisClient))

	var orderPublisher service.OrderPublisher
	if cfg.KafkaBrokers != "" {
		kp := publisher.NewOrderPublisher(strings.Split(cfg.KafkaBrokers, ",")...)
		defer kp.Close()
		orderPublisher = kp
		log.Printf("Kafka order publisher enabled (%s)", cfg.KafkaBrokers)
	}

	gate := service.NewCheckoutGate(cartService, reconciler, settings, orderPublisher)

	cartHandler := h.NewCartHandler(cartService, gate)
	adminAuth := cataloghttp.NewAdminAuth(cfg.AdminUsername, cfg.AdminPassword)
	catalogHandler := cataloghttp.NewHandler(catRepo, adminAuth)
	if cfg.AdminPassword == "" {
		log.Println("ADMIN_PASSWORD not set, admin API disabled")
	}

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Catalog API (public + admin)
	r.Route("/api", catalogHandler.Routes)

	// Cart API, scoped per device
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(h.DeviceIDMiddleware)
		cartHandler.Routes(r)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
