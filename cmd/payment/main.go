package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/piresc/payrelay/internal/pkg/config"
	"github.com/piresc/payrelay/internal/pkg/database"
	"github.com/piresc/payrelay/internal/pkg/health"
	"github.com/piresc/payrelay/internal/pkg/logger"
	"github.com/piresc/payrelay/internal/pkg/middleware"
	natspkg "github.com/piresc/payrelay/internal/pkg/nats"
	nrpkg "github.com/piresc/payrelay/internal/pkg/newrelic"
	"github.com/piresc/payrelay/internal/pkg/server"
	"github.com/piresc/payrelay/services/payment"
	"github.com/piresc/payrelay/services/payment/gateway"
	"github.com/piresc/payrelay/services/payment/handler"
	"github.com/piresc/payrelay/services/payment/repository"
	"github.com/piresc/payrelay/services/payment/usecase"
	"go.uber.org/zap"
)

func main() {
	appName := "payment-service"
	configPath := config.GetEnv("CONFIG_PATH", "config/payment.env")
	configs := config.InitConfig(configPath)

	// Initialize New Relic and Zap logger
	nrApp := nrpkg.InitNewRelic(configs)
	if nrApp != nil {
		if err := nrApp.WaitForConnection(10 * time.Second); err != nil {
			log.Printf("Warning: New Relic connection timeout: %v", err)
		}
		defer nrApp.Shutdown(10 * time.Second)
	}

	zapLogger, err := logger.InitZapLoggerFromConfig(configs, nrApp)
	if err != nil {
		log.Fatalf("Failed to create Zap logger: %v", err)
	}
	defer zapLogger.Close()
	logger.SetGlobalLogger(zapLogger)

	zapLogger.Info("Starting application",
		zap.String("app", appName),
		zap.String("version", configs.App.Version),
		zap.String("environment", configs.App.Environment),
	)

	if configs.Paystack.SecretKey == "" {
		zapLogger.Fatal("PAYSTACK_SECRET_KEY is required")
	}

	countries, err := config.LoadCountryConfigs(configs.Payment.CountryConfigPath)
	if err != nil {
		zapLogger.Fatal("Failed to load country configuration", zap.Error(err))
	}

	shutdown := server.NewShutdownManager(zapLogger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdown.Shutdown(ctx)
	}()

	// Initialize PostgreSQL database connection
	postgresClient, err := database.NewPostgresClient(configs.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	shutdown.Register("postgres", func(context.Context) error { return postgresClient.Close() })

	// Initialize repository
	transactionRepo := repository.NewTransactionRepo(configs, postgresClient.GetDB())
	schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := transactionRepo.EnsureSchema(schemaCtx); err != nil {
		cancel()
		zapLogger.Fatal("Failed to prepare transactions table", zap.Error(err))
	}
	cancel()

	healthService := health.NewHealthService(zapLogger)
	healthService.AddChecker("postgres", health.NewPingChecker(postgresClient))

	// Redis is optional; without it reconciliation is serialized in process only
	lockTTL := time.Duration(configs.Payment.LockTTLSeconds) * time.Second
	var locker payment.Locker
	if configs.Redis.Enabled() {
		redisClient, err := database.NewRedisClient(configs.Redis)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })

		locker = repository.NewRedisLocker(redisClient, lockTTL)
		healthService.AddChecker("redis", health.NewPingChecker(redisClient))
	} else {
		zapLogger.Warn("Redis not configured, using in-process reference locks")
		locker = repository.NewLocalLocker()
	}

	// NATS is optional; without it outcome notifications are dropped
	var eventGW payment.EventGW = gateway.NoopEventGW{}
	if configs.NATS.URL != "" {
		natsClient, err := natspkg.NewClient(configs.NATS.URL)
		if err != nil {
			zapLogger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		shutdown.Register("nats", func(context.Context) error {
			natsClient.Close()
			return nil
		})

		eventGW = gateway.NewNATSGateway(natsClient)
		healthService.AddChecker("nats", health.NewNATSHealthChecker(natsClient))
	}

	// Initialize gateways
	callTimeout := time.Duration(configs.Payment.OutboundTimeoutSeconds) * time.Second
	paymentGW := gateway.NewPaystackGW(configs.Paystack, callTimeout)
	payoutGW := gateway.NewSimulatedPayoutGW()

	// Initialize UseCase
	paymentUC := usecase.NewPaymentUC(configs, countries, transactionRepo, locker, paymentGW, payoutGW, eventGW)

	// Initialize Echo router
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(configs.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(configs.Server.WriteTimeout) * time.Second

	// Add middlewares
	if nrApp != nil {
		e.Use(nrecho.Middleware(nrApp))
	}
	e.Use(middleware.PanicRecoveryWithZapMiddleware(zapLogger))
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.ZapEchoMiddleware(zapLogger))

	// Register health endpoints
	health.RegisterEnhancedHealthEndpoints(e, appName, configs.App.Version, healthService)

	// Register service routes
	handler.NewHTTPHandler(paymentUC, configs).RegisterRoutes(e)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", configs.Server.Host, configs.Server.Port)
	shutdownTimeout := time.Duration(configs.Server.ShutdownTimeout) * time.Second
	if err := server.NewGracefulServer(e, zapLogger, addr, shutdownTimeout).Run(ctx); err != nil {
		zapLogger.Error("Server stopped with error",
			zap.String("app", appName),
			zap.Error(err),
		)
	}
}
