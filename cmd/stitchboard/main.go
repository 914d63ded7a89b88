package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stitchboard/stitchboard/internal/auth"
	"github.com/stitchboard/stitchboard/internal/customers"
	"github.com/stitchboard/stitchboard/internal/db"
	"github.com/stitchboard/stitchboard/internal/events"
	"github.com/stitchboard/stitchboard/internal/orders"
	"github.com/stitchboard/stitchboard/internal/statuses"
	"github.com/stitchboard/stitchboard/internal/uploads"
	"github.com/stitchboard/stitchboard/internal/websocket"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	dsn := getEnv("DB_DSN",
		"host=localhost port=5432 user=stitchboard password=stitchboard dbname=stitchboard sslmode=disable")
	migrationsDir := getEnv("MIGRATIONS_DIR", "migrations")
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")
	storageURL := getEnv("FILE_STORAGE_URL", "")
	port := getEnv("PORT", "8080")
	adminName := getEnv("ADMIN_NAME", "Admin User")
	adminEmail := getEnv("ADMIN_EMAIL", "admin@example.com")
	adminPassword := getEnv("ADMIN_PASSWORD", "password123")

	database, err := db.Connect(dsn, migrationsDir, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orderStore := orders.NewPostgresStore(database)
	statusStore := statuses.NewPostgresStore(database)
	customerStore := customers.NewPostgresStore(database)
	authStore := auth.NewPostgresStore(database)

	if err := statusStore.Seed(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to seed statuses")
	}
	if err := authStore.EnsureAdmin(ctx, adminName, adminEmail, adminPassword); err != nil {
		logger.WithError(err).Fatal("Failed to seed admin user")
	}

	orderHandler := orders.NewHandler(orderStore, logger)
	statusHandler := statuses.NewHandler(statusStore, logger)
	customerHandler := customers.NewHandler(customerStore, logger)
	authHandler := auth.NewHandler(authStore, logger)

	var storage uploads.Storage
	if storageURL != "" {
		storage = uploads.NewStorageClient(storageURL, logger)
	} else {
		logger.Warn("FILE_STORAGE_URL not set, uploads are disabled")
	}
	uploadHandler := uploads.NewHandler(storage, logger)

	if kafkaBrokers != "" {
		producer, err := events.NewKafkaProducer(kafkaBrokers, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka producer")
		}
		defer producer.Close()
		orderHandler.SetEventPublisher(producer)
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events are disabled")
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	orderHandler.SetWebSocketHub(hub)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))
	router.HandleFunc("/health", healthCheck(database)).Methods("GET")
	router.HandleFunc("/ws", hub.HandleWebSocket)
	authHandler.RegisterRoutes(router)

	protected := router.NewRoute().Subrouter()
	protected.Use(auth.Middleware(authStore, logger))
	orderHandler.RegisterRoutes(protected)
	statusHandler.RegisterRoutes(protected)
	customerHandler.RegisterRoutes(protected)
	uploadHandler.RegisterRoutes(protected)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", port).Info("Starting stitchboard API")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server gracefully stopped")
}

func healthCheck(database interface{ Ping() error }) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := database.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","service":"stitchboard"}`))
			return
		}
		w.Write([]byte(`{"status":"healthy","service":"stitchboard"}`))
	}
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
