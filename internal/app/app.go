package app

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"carbonstream/internal/clients"
	"carbonstream/internal/config"
	"carbonstream/internal/parser"
	"carbonstream/internal/repository"
	"carbonstream/internal/service"
	"carbonstream/internal/validator"
	"carbonstream/libs/db"
)

// App wires the ETL job dependencies for a single invocation.
type App struct {
	pipeline *service.Pipeline
	db       *sql.DB
	logger   *zap.Logger
}

// New constructs job components.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	telemetryRepo := repository.NewTelemetryRepository(sqlDB)
	runLogRepo := repository.NewRunLogRepository(sqlDB)

	carbonClient := clients.NewCarbonClient(clients.CarbonClientConfig{
		IntensityURL:     cfg.Upstream.IntensityURL,
		GenerationMixURL: cfg.Upstream.GenerationMixURL,
		MaxAttempts:      cfg.Upstream.MaxAttempts,
		BaseDelay:        cfg.Upstream.BackoffBase.Std(),
		AttemptTimeout:   cfg.Upstream.AttemptTimeout.Std(),
	}, clients.NewDefaultHTTPClient(cfg.Upstream.AttemptTimeout.Std()), logger)

	pipeline := service.NewPipeline(
		carbonClient,
		parser.New(logger),
		validator.New(logger, cfg.Pipeline.FreshnessWindow.Std()),
		telemetryRepo,
		runLogRepo,
		logger,
		service.PipelineConfig{Strict: cfg.Pipeline.StrictValidation},
	)

	return &App{
		pipeline: pipeline,
		db:       sqlDB,
		logger:   logger,
	}, nil
}

// Run performs exactly one pipeline invocation. The run outcome lands in the
// etl_runs table; Run itself only fails on wiring-level problems.
func (a *App) Run(ctx context.Context) error {
	outcome := a.pipeline.Run(ctx)
	a.logger.Info("invocation finished",
		zap.String("status", string(outcome.Status)),
		zap.Int("rows_inserted", outcome.RowsInserted),
		zap.Int64("execution_time_ms", outcome.ExecutionTimeMs))
	return nil
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
