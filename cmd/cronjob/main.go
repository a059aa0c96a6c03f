package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/NinePK/back-car/internal/config"
	"github.com/NinePK/back-car/internal/jobs"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/NinePK/back-car/internal/notify"
	"github.com/NinePK/back-car/internal/repository/postgres"
	"github.com/NinePK/back-car/internal/scheduler"
	"github.com/NinePK/back-car/internal/service"
	"github.com/NinePK/back-car/internal/utils"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'reconcile-availability', 'report-flagged-pricing', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting back-car cronjob runner...", "log_level", cfg.Log.Level)

	if cfg.Storage.Type != config.StoragePostgres {
		log.Fatalf("Cronjob runner requires postgres storage, got %q", cfg.Storage.Type)
	}

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)

	// Jobs never notify; the log channel records anything a service emits.
	pricing := utils.OverridePolicy{
		TolerancePercent: decimal.NewFromFloat(cfg.Pricing.OverrideTolerancePercent),
		Enforce:          cfg.Pricing.EnforceTolerance,
	}
	jobServices := &jobs.Services{
		Rental:       service.NewRentalService(store, notify.Log(), nil, pricing),
		Availability: service.NewAvailabilityService(store),
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.", "jobs", cronScheduler.JobCount())

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "reconcile-availability":
		jobRunner.ReconcileAvailability()
	case "report-flagged-pricing":
		jobRunner.ReportFlaggedPricing()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - reconcile-availability\n")
		fmt.Printf("  - report-flagged-pricing\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
