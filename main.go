package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/masapp-io/maintenance-engine/pkg/config"
	"github.com/masapp-io/maintenance-engine/pkg/database"
	"github.com/masapp-io/maintenance-engine/pkg/handlers"
	"github.com/masapp-io/maintenance-engine/pkg/logging"
	"github.com/masapp-io/maintenance-engine/pkg/middleware"
	"github.com/masapp-io/maintenance-engine/pkg/models"
	"github.com/masapp-io/maintenance-engine/pkg/repositories"
	"github.com/masapp-io/maintenance-engine/pkg/retry"
	"github.com/masapp-io/maintenance-engine/pkg/services"
	"github.com/masapp-io/maintenance-engine/pkg/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// .env is a local-development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("redis_enabled", cfg.Redis.Host != ""),
		zap.Duration("scheduler_interval", cfg.Scheduler.Interval))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.PermissionsPath != "" {
		if err := models.LoadPermissions(cfg.PermissionsPath); err != nil {
			logger.Fatal("failed to load permissions file", zap.Error(err))
		}
		logger.Info("loaded permission matrix override", zap.String("path", cfg.PermissionsPath))
	}

	// Migrations run through database/sql; the pool below uses pgx
	// natively.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	// The database may still be starting when the engine comes up, so
	// connect with backoff before giving up.
	var db *database.DB
	err = retry.DoIfRetryable(ctx, nil, func() error {
		db, err = database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
		return err
	})
	if err != nil {
		logger.Fatal("failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	rdb, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close() //nolint:errcheck
	}

	store, err := storage.NewFileStore(cfg.Storage.AttachmentsDir)
	if err != nil {
		logger.Fatal("failed to initialize attachment storage", zap.Error(err))
	}

	// Repositories
	planRepo := repositories.NewPlanRepository(db)
	woRepo := repositories.NewWorkOrderRepository(db)
	partRepo := repositories.NewPartRepository(db)
	machineRepo := repositories.NewMachineRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Services
	auditService := services.NewAuditService(auditRepo, logger)
	schedulerService := services.NewSchedulerService(planRepo, woRepo, auditService, db, rdb,
		cfg.Scheduler.GenerateAMOrders, logger)
	planService := services.NewPlanService(planRepo, woRepo, machineRepo, auditService, db, logger)
	woService := services.NewWorkOrderService(woRepo, partRepo, auditService, schedulerService, store, db, logger)
	partService := services.NewPartService(partRepo, auditService, db, logger)
	machineService := services.NewMachineService(machineRepo, auditService, db, logger)

	// HTTP surface
	mux := http.NewServeMux()
	actor := handlers.NewActorMiddleware(logger)

	handlers.NewHealthHandler(db, cfg.Version, logger).RegisterRoutes(mux)
	handlers.NewPlanHandler(planService, logger).RegisterRoutes(mux, actor)
	handlers.NewWorkOrderHandler(woService, logger).RegisterRoutes(mux, actor)
	handlers.NewSchedulerHandler(schedulerService, logger).RegisterRoutes(mux, actor)
	handlers.NewMachineHandler(machineService, logger).RegisterRoutes(mux, actor)
	handlers.NewPartHandler(partService, logger).RegisterRoutes(mux, actor)
	handlers.NewAuditHandler(auditService, logger).RegisterRoutes(mux, actor)

	if cfg.Scheduler.Interval > 0 {
		go schedulerService.RunPeriodic(ctx, cfg.Scheduler.Interval)
	}

	addr := cfg.BindAddr + ":" + cfg.Port
	server := &http.Server{Addr: addr, Handler: middleware.RequestLogger(logger)(mux)}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = server.Shutdown(context.Background())
	}()

	logger.Info("maintenance engine listening",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
