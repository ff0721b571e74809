package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-concerts/internal/billing"
	"ms-concerts/internal/concert"
	"ms-concerts/internal/concert/api"
	concert_db "ms-concerts/internal/concert/db"
	"ms-concerts/internal/config"
	"ms-concerts/internal/database/migrations"
	"ms-concerts/internal/inventory"
	"ms-concerts/internal/kafka"
	"ms-concerts/internal/lock"
	"ms-concerts/internal/logger"
	"ms-concerts/internal/order"
	order_db "ms-concerts/internal/order/db"
	"ms-concerts/internal/order/order_api"
	"ms-concerts/internal/tickets/qr"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Concert Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.Options{
			MigrationsDir: "./migrations",
			AutoMigrate:   true,
		})
		if err := runner.MigrateUp(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Auto-migration failed: %v", err))
		}
		logger.Info("DATABASE", "Schema migrations applied")
	}

	var kafkaProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		kafkaProducer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer kafkaProducer.Close()

		requiredTopics := []string{
			cfg.Kafka.Topics.OrderCreated,
			cfg.Kafka.Topics.TicketsAdded,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		logger.Warn("KAFKA", "Kafka disabled, order events will not be published")
	}

	var gateway order.PaymentGateway
	if cfg.Stripe.MockMode {
		logger.Warn("PAYMENT", "Running with the fake payment gateway, no real charges will be made")
		gateway = billing.NewFakePaymentGateway()
	} else {
		stripeGateway, err := billing.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.Currency, logger)
		if err != nil {
			logger.Fatal("PAYMENT", fmt.Sprintf("Failed to initialize Stripe: %v", err))
		}
		gateway = stripeGateway
	}

	redisLock := lock.NewRedis(
		redisClient,
		cfg.Reservation.LockTTL,
		cfg.Reservation.LockRetries,
		cfg.Reservation.LockRetryWait,
		cfg.Reservation.RemainingCacheTTL,
	)

	inventoryDB := &inventory.DB{Bun: bunDB}

	var concertKafka concert.KafkaPublisher
	var orderKafka order.KafkaPublisher
	if kafkaProducer != nil {
		concertKafka = kafkaProducer
		orderKafka = kafkaProducer
	}

	concertService := concert.NewConcertService(
		&concert_db.DB{Bun: bunDB},
		inventoryDB,
		redisLock,
		concertKafka,
		logger,
	)
	concertService.TicketsAddedTopic = cfg.Kafka.Topics.TicketsAdded

	orderService := order.NewOrderService(
		&order_db.DB{Bun: bunDB},
		concertService,
		inventoryDB,
		gateway,
		redisLock,
		redisLock,
		orderKafka,
		logger,
	)
	orderService.OrderCreatedTopic = cfg.Kafka.Topics.OrderCreated

	orderHandler := &order_api.Handler{
		OrderService: orderService,
		Tickets:      inventoryDB,
		QR:           qr.NewGenerator(cfg.TicketQRSecret),
		Logger:       logger,
	}

	concertHandler := api.NewHandler(concertService, logger)

	logger.Info("HTTP", "Setting up router")
	r := chi.NewRouter()

	concertHandler.RegisterRoutes(r)
	r.Post("/api/concerts/{concertId}/orders", orderHandler.PlaceOrder)
	r.Get("/api/orders/{orderId}", orderHandler.GetOrder)
	r.Get("/api/tickets/{ticketId}/qr", orderHandler.GetTicketQR)
	logger.Info("ROUTER", "Concert and order routes registered under /api")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Concert Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Concert Service shutdown complete")
	}
}
