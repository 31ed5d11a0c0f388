package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonstream/internal/models"
	"carbonstream/internal/parser"
	"carbonstream/internal/validator"
)

// Fetcher retrieves raw payloads from the upstream carbon API.
type Fetcher interface {
	FetchIntensity(ctx context.Context) ([]byte, error)
	FetchGenerationMix(ctx context.Context) ([]byte, error)
}

// TelemetryStore persists readings idempotently by measurement window.
type TelemetryStore interface {
	EnsureSchema(ctx context.Context) error
	Exists(ctx context.Context, ts time.Time) (bool, error)
	Insert(ctx context.Context, reading *models.TelemetryReading) error
}

// RunLogStore records invocation outcomes.
type RunLogStore interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, entry *models.RunLog) error
}

// PipelineConfig tunes one pipeline instance.
type PipelineConfig struct {
	// Strict rejects the telemetry write when any validation fails instead
	// of persisting the extracted values with a partial status.
	Strict bool
}

// Pipeline sequences fetch, parse, validate and persist for one invocation
// and guarantees a run-log entry regardless of where the run fails.
type Pipeline struct {
	fetcher   Fetcher
	parser    *parser.Parser
	validator *validator.Validator
	telemetry TelemetryStore
	runs      RunLogStore
	logger    *zap.Logger
	cfg       PipelineConfig
	now       func() time.Time
}

// NewPipeline wires the orchestrator.
func NewPipeline(fetcher Fetcher, p *parser.Parser, v *validator.Validator, telemetry TelemetryStore, runs RunLogStore, logger *zap.Logger, cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		parser:    p,
		validator: v,
		telemetry: telemetry,
		runs:      runs,
		logger:    logger.Named("pipeline"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run executes one ETL invocation and returns the recorded outcome. Data-path
// failures never propagate: they end up in the run log and the log stream.
func (p *Pipeline) Run(ctx context.Context) (outcome models.RunLog) {
	logger := p.logger.With(zap.String("run_id", uuid.NewString()))
	started := p.now()

	entry := models.RunLog{
		RunTimestamp: started.UTC(),
		Status:       models.RunStatusFailure,
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("pipeline panicked", zap.Any("panic", rec))
			entry.Status = models.RunStatusFailure
			entry.RowsInserted = 0
			entry.ErrorMessage = fmt.Sprintf("panic: %v", rec)
		}
		entry.ExecutionTimeMs = p.now().Sub(started).Milliseconds()
		p.writeRunLog(ctx, logger, &entry)
		outcome = entry
	}()

	logger.Info("pipeline run started")

	if err := p.ensureSchema(ctx); err != nil {
		logger.Error("schema setup failed", zap.Error(err))
		entry.ErrorMessage = err.Error()
		return
	}

	entry.Status, entry.RowsInserted, entry.ErrorMessage = p.execute(ctx, logger)
	return
}

func (p *Pipeline) ensureSchema(ctx context.Context) error {
	if err := p.telemetry.EnsureSchema(ctx); err != nil {
		return err
	}
	return p.runs.EnsureSchema(ctx)
}

// execute walks the state machine up to (but not including) the run-log
// write, returning the final status, rows inserted and error message.
func (p *Pipeline) execute(ctx context.Context, logger *zap.Logger) (models.RunStatus, int, string) {
	intensityBody, err := p.fetcher.FetchIntensity(ctx)
	if err != nil {
		logger.Error("intensity fetch failed", zap.Error(err))
		return models.RunStatusFailure, 0, err.Error()
	}
	mixBody, err := p.fetcher.FetchGenerationMix(ctx)
	if err != nil {
		logger.Error("generation mix fetch failed", zap.Error(err))
		return models.RunStatusFailure, 0, err.Error()
	}

	reading, err := p.parser.ExtractIntensity(intensityBody)
	if err != nil {
		logger.Error("intensity parse failed", zap.Error(err))
		return models.RunStatusFailure, 0, err.Error()
	}
	mix, err := p.parser.ExtractGenerationMix(mixBody)
	if err != nil {
		logger.Error("generation mix parse failed", zap.Error(err))
		return models.RunStatusFailure, 0, err.Error()
	}

	problems := p.validate(reading, mix)

	status := models.RunStatusSuccess
	errMsg := ""
	if len(problems) > 0 {
		errMsg = strings.Join(problems, "; ")
		if p.cfg.Strict {
			logger.Error("validation failed, rejecting write in strict mode", zap.Strings("problems", problems))
			return models.RunStatusFailure, 0, errMsg
		}
		status = models.RunStatusPartial
		logger.Warn("validation failed, persisting anyway", zap.Strings("problems", problems))
	}

	exists, err := p.telemetry.Exists(ctx, reading.WindowFrom)
	if err != nil {
		logger.Error("duplicate check failed", zap.Error(err))
		return models.RunStatusFailure, 0, err.Error()
	}
	if exists {
		logger.Info("reading already stored for this window, skipping insert",
			zap.Time("timestamp", reading.WindowFrom))
		return models.RunStatusSkipped, 0, ""
	}

	record := &models.TelemetryReading{
		Timestamp: reading.WindowFrom,
		FuelMix:   mix,
	}
	if reading.Value != nil {
		record.OverallIntensity = *reading.Value
	}

	if err := p.telemetry.Insert(ctx, record); err != nil {
		if errors.Is(err, models.ErrDuplicateTimestamp) {
			logger.Info("concurrent insert for this window, skipping",
				zap.Time("timestamp", reading.WindowFrom))
			return models.RunStatusSkipped, 0, ""
		}
		logger.Error("telemetry insert failed", zap.Error(err))
		return models.RunStatusFailure, 0, err.Error()
	}

	logger.Info("telemetry stored",
		zap.Time("timestamp", record.Timestamp),
		zap.Float64("intensity", record.OverallIntensity),
		zap.String("status", string(status)))
	return status, 1, errMsg
}

func (p *Pipeline) validate(reading parser.IntensityReading, mix map[string]float64) []string {
	var problems []string
	if !p.validator.Intensity(reading.Value) {
		problems = append(problems, intensityProblem(reading.Value))
	}
	for _, fuel := range models.TrackedFuels {
		if !p.validator.FuelPercentage(fuel, mix[fuel]) {
			problems = append(problems, fmt.Sprintf("fuel %s percentage %.1f out of range", fuel, mix[fuel]))
		}
	}
	if !p.validator.Timestamp(reading.WindowFrom) {
		problems = append(problems, "window start timestamp absent")
	}
	return problems
}

func intensityProblem(value *float64) string {
	if value == nil {
		return "intensity value absent"
	}
	return fmt.Sprintf("intensity %.1f out of range", *value)
}

// writeRunLog appends the audit entry. The write is detached from the run's
// cancellation so an aborted run still leaves a failure record; its own
// failure is logged and swallowed.
func (p *Pipeline) writeRunLog(ctx context.Context, logger *zap.Logger, entry *models.RunLog) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := p.runs.Insert(writeCtx, entry); err != nil {
		logger.Error("run log write failed",
			zap.String("status", string(entry.Status)),
			zap.Error(err))
		return
	}
	logger.Info("run recorded",
		zap.String("status", string(entry.Status)),
		zap.Int("rows_inserted", entry.RowsInserted),
		zap.Int64("execution_time_ms", entry.ExecutionTimeMs))
}
