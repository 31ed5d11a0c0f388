package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"carbonstream/internal/models"
)

// TelemetryRepository persists grid carbon readings.
type TelemetryRepository struct {
	db *sql.DB
}

// NewTelemetryRepository returns repository.
func NewTelemetryRepository(db *sql.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// EnsureSchema creates the telemetry table when absent. Idempotent; run at
// the start of every invocation.
func (r *TelemetryRepository) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS grid_telemetry (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			overall_intensity DOUBLE PRECISION NOT NULL,
			fuel_gas_perc DOUBLE PRECISION NOT NULL,
			fuel_nuclear_perc DOUBLE PRECISION NOT NULL,
			fuel_wind_perc DOUBLE PRECISION NOT NULL,
			fuel_solar_perc DOUBLE PRECISION NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure grid_telemetry schema: %w", err)
	}
	return nil
}

// Exists reports whether a reading with the exact measurement window start
// is already stored.
func (r *TelemetryRepository) Exists(ctx context.Context, ts time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM grid_telemetry WHERE timestamp = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, ts).Scan(&exists); err != nil {
		return false, fmt.Errorf("check duplicate timestamp: %w", err)
	}
	return exists, nil
}

// Insert stores a reading inside a transaction. The duplicate check is
// repeated under the transaction; a concurrent insert of the same window
// surfaces as models.ErrDuplicateTimestamp rather than a second row.
func (r *TelemetryRepository) Insert(ctx context.Context, reading *models.TelemetryReading) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin telemetry tx: %w", err)
	}
	defer tx.Rollback()

	const existsQuery = `SELECT EXISTS (SELECT 1 FROM grid_telemetry WHERE timestamp = $1)`
	var exists bool
	if err := tx.QueryRowContext(ctx, existsQuery, reading.Timestamp).Scan(&exists); err != nil {
		return fmt.Errorf("check duplicate timestamp: %w", err)
	}
	if exists {
		return models.ErrDuplicateTimestamp
	}

	const insertQuery = `
		INSERT INTO grid_telemetry (timestamp, overall_intensity, fuel_gas_perc, fuel_nuclear_perc, fuel_wind_perc, fuel_solar_perc)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, insertQuery,
		reading.Timestamp,
		reading.OverallIntensity,
		reading.FuelMix[models.FuelGas],
		reading.FuelMix[models.FuelNuclear],
		reading.FuelMix[models.FuelWind],
		reading.FuelMix[models.FuelSolar],
	).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("insert telemetry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit telemetry tx: %w", err)
	}
	return nil
}
