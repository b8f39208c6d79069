package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/expenseflow/backend/internal/application/service"
	"github.com/expenseflow/backend/internal/config"
	"github.com/expenseflow/backend/internal/infrastructure/persistence/repository"
	"github.com/expenseflow/backend/internal/infrastructure/persistence/sqlite"
	httpadapter "github.com/expenseflow/backend/internal/interfaces/http"
	"github.com/expenseflow/backend/pkg/database"
	"github.com/expenseflow/backend/pkg/logging"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.New(logging.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense approval service",
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer sqlDB.Close()

	// Run migrations
	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	db := sqlite.NewDB(sqlDB, logger)

	// Initialize repositories
	expenseRepo := repository.NewExpenseRepository(sqlDB, logger)
	companyRepo := repository.NewCompanyRepository(sqlDB, logger)
	userRepo := repository.NewUserRepository(sqlDB, logger)

	// Initialize application services
	kv := logging.NewKV(logger)
	registry := service.NewFlowRegistry(companyRepo, kv)
	resolver := service.NewApproverResolver(userRepo, kv)
	engine := service.NewApprovalEngine(expenseRepo, registry, resolver, db, kv)
	expenseService := service.NewExpenseService(expenseRepo, userRepo, engine, kv)
	flowAdmin := service.NewFlowAdminService(companyRepo, db, kv)
	override := service.NewOverrideService(expenseRepo, db, kv)
	reports := service.NewReportService(expenseRepo, cfg.Export.MaxRows, kv)

	// Initialize HTTP server
	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		JWTSecret:    cfg.Auth.JWTSecret,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, httpadapter.Services{
		Expenses:  expenseService,
		Engine:    engine,
		FlowAdmin: flowAdmin,
		Override:  override,
		Reports:   reports,
	}, kv)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
