package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics/abc"
	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics/spc"
	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics/waittime"
	"github.com/SanathAishu/clinic-administration-sub006/internal/archival"
	"github.com/SanathAishu/clinic-administration-sub006/internal/audit"
	"github.com/SanathAishu/clinic-administration-sub006/internal/cache"
	"github.com/SanathAishu/clinic-administration-sub006/internal/config"
	"github.com/SanathAishu/clinic-administration-sub006/internal/database"
	"github.com/SanathAishu/clinic-administration-sub006/internal/handlers"
	"github.com/SanathAishu/clinic-administration-sub006/internal/metrics"
	"github.com/SanathAishu/clinic-administration-sub006/internal/scheduler"
	"github.com/SanathAishu/clinic-administration-sub006/internal/server"
)

var version = "dev"

func main() {
	var (
		configPath  = flag.String("config", "config/config.yaml", "path to configuration file")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := cfg.InitLogger()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting clinic analytics service",
		zap.String("version", version),
		zap.String("environment", cfg.Environment),
	)

	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	gormDB, err := database.OpenGorm(db)
	if err != nil {
		logger.Fatal("Failed to open gorm session", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	defer redisClient.Close()

	collector := metrics.NewCollector()

	auditLog := audit.NewLogger(logger)
	if !cfg.Audit.Enabled {
		auditLog = audit.NewLogger(zap.NewNop())
	}

	estimator := waittime.NewEstimator(waittime.Params{
		HighConfidenceUtilization: cfg.Analytics.WaitTime.HighConfidenceUtilization,
		MinHistoricalSamples:      cfg.Analytics.WaitTime.MinHistoricalSamples,
		PositionBatchSize:         cfg.Analytics.WaitTime.PositionBatchSize,
	})
	classifier := abc.NewClassifier(abc.Params{
		ClassABoundary: cfg.Analytics.ABC.ClassABoundary,
		ClassBBoundary: cfg.Analytics.ABC.ClassBBoundary,
		ServiceLevelA:  cfg.Analytics.ABC.ServiceLevelA,
		ServiceLevelB:  cfg.Analytics.ABC.ServiceLevelB,
		ServiceLevelC:  cfg.Analytics.ABC.ServiceLevelC,
	})
	monitor := spc.NewMonitor(spc.Params{
		SigmaMultiplier:        cfg.Analytics.SPC.SigmaMultiplier,
		OutOfControlViolations: cfg.Analytics.SPC.OutOfControlViolations,
		RecentViolations:       cfg.Analytics.SPC.RecentViolations,
	})

	executionStore := database.NewExecutionStore(db, logger)
	tracker := archival.NewTracker(executionStore, logger)
	policyStore := database.NewPolicyStore(gormDB, logger)
	archiver := database.NewEntityArchiver(db, cfg.Retention.EntityTables, logger)

	dashboardCache := cache.NewDashboardCache(redisClient, cfg.Redis.DashboardTTL, logger)

	handler := handlers.NewHandler(estimator, classifier, monitor, tracker,
		dashboardCache, collector, auditLog, logger)
	srv := server.New(cfg, handler, collector, logger)

	var retentionScheduler *scheduler.Scheduler
	if cfg.Retention.Enabled {
		retentionScheduler = scheduler.New(policyStore, archiver, tracker,
			auditLog, collector, logger)
		if err := retentionScheduler.Start(cfg.Retention.Schedule); err != nil {
			logger.Fatal("Failed to start retention scheduler", zap.Error(err))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	if retentionScheduler != nil {
		retentionScheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}

	logger.Info("Service stopped")
}
