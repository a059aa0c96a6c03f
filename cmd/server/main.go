package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	grpcapi "github.com/NinePK/back-car/internal/api/grpc"
	httpapi "github.com/NinePK/back-car/internal/api/http"
	"github.com/NinePK/back-car/internal/config"
	"github.com/NinePK/back-car/internal/lock"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/notify"
	"github.com/NinePK/back-car/internal/repository"
	"github.com/NinePK/back-car/internal/repository/memory"
	"github.com/NinePK/back-car/internal/repository/postgres"
	"github.com/NinePK/back-car/internal/security"
	"github.com/NinePK/back-car/internal/service"
	"github.com/NinePK/back-car/internal/utils"

	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting back-car rental engine...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http_address", cfg.GetHTTPAddress(), "grpc_address", cfg.GetGRPCAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "type", cfg.Storage.Type, "error", err)
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	// Initialize booking lock
	locker := lock.Nop()
	if cfg.Redis.Enabled {
		if client := lock.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); client != nil {
			defer client.Close()
			locker = lock.NewRedisLocker(client, cfg.LockTTL(), cfg.LockWait())
			logger.Info("Vehicle booking lock enabled", "redis_addr", cfg.Redis.Addr)
		}
	}

	// Initialize notification channels
	notifier, closeNotifier := buildNotifier(ctx, cfg, store)
	defer closeNotifier()

	// Initialize Services
	pricing := utils.OverridePolicy{
		TolerancePercent: decimal.NewFromFloat(cfg.Pricing.OverrideTolerancePercent),
		Enforce:          cfg.Pricing.EnforceTolerance,
	}
	rentalSvc := service.NewRentalService(store, notifier, locker, pricing)
	paymentSvc := service.NewPaymentService(store, notifier)
	availabilitySvc := service.NewAvailabilityService(store)
	noteSvc := service.NewNotificationService(store.Notifications())

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())

	// HTTP API
	handler := httpapi.NewHandler(rentalSvc, paymentSvc, availabilitySvc, noteSvc)
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           httpapi.NewRouter(handler, httpapi.NewAuthMiddleware(tokenManager)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC read API and health
	grpcServer, healthServer := grpcapi.NewServer(tokenManager, grpcapi.NewRentalHandler(rentalSvc, paymentSvc))
	var pinger grpcapi.Pinger
	if db != nil {
		pinger = db
	}
	watcher := grpcapi.NewHealthWatcher(healthServer, pinger, 10*time.Second)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
		if err != nil {
			return err
		}
		logger.Info("gRPC server listening", "address", cfg.GetGRPCAddress())
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		return watcher.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()

		grpcStopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(grpcStopped)
		}()
		err := httpServer.Shutdown(shutdownCtx)
		select {
		case <-grpcStopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Server stopped. Goodbye!")
}

// openStore returns the configured repository backend. db is nil for the
// memory backend.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, *sql.DB, error) {
	if cfg.Storage.Type == config.StorageMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		if cfg.Storage.SeedFile != "" {
			n, err := store.LoadSeed(ctx, cfg.Storage.SeedFile)
			if err != nil {
				return nil, nil, err
			}
			logger.Info("Seeded in-memory storage", "file", cfg.Storage.SeedFile, "vehicles", n)
		}
		return store, nil, nil
	}

	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("Database connection established")

	if cfg.Storage.MigrateOnStart {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return postgres.NewStore(db), db, nil
}

// buildNotifier assembles the enabled notification channels. A channel that
// cannot be initialised is skipped with a warning.
func buildNotifier(ctx context.Context, cfg *config.Config, store repository.Store) (notify.Notifier, func()) {
	fanout := notify.NewFanout()
	closers := []func(){}

	if cfg.Notify.Enabled(config.ChannelLog) {
		fanout.Add(config.ChannelLog, notify.Log())
	}
	if cfg.Notify.Enabled(config.ChannelInbox) {
		fanout.Add(config.ChannelInbox, notify.NewInboxNotifier(store.Notifications()))
	}
	if cfg.Notify.Enabled(config.ChannelAMQP) {
		publisher := notify.NewAMQPPublisher(cfg.Notify.AMQPURL, cfg.Notify.AMQPQueue)
		fanout.Add(config.ChannelAMQP, publisher)
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("Failed to close AMQP publisher", "error", err)
			}
		})
	}
	if cfg.Notify.Enabled(config.ChannelEmail) {
		fanout.Add(config.ChannelEmail, notify.NewEmailNotifier(cfg.Notify.SendGridAPIKey, cfg.Notify.FromEmail,
			cfg.Notify.FromName, store.Contacts()))
	}
	if cfg.Notify.Enabled(config.ChannelPush) {
		push, err := notify.NewPushNotifier(ctx, cfg.Notify.FirebaseCredentialsFile)
		if err != nil {
			logger.Warn("Push notifications disabled", "error", err)
		} else {
			fanout.Add(config.ChannelPush, push)
		}
	}

	logger.Info("Notification channels enabled", "count", fanout.Len(), "channels", cfg.Notify.Channels)
	return fanout, func() {
		for _, c := range closers {
			c()
		}
	}
}
