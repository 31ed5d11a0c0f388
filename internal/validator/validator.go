package validator

import (
	"time"

	"go.uber.org/zap"
)

const (
	minIntensity  = 0
	maxIntensity  = 1000
	minPercentage = 0
	maxPercentage = 100
)

// Validator holds the data-quality predicates. Each predicate is pure aside
// from logging the reason when a check fails.
type Validator struct {
	logger    *zap.Logger
	freshness time.Duration
	now       func() time.Time
}

// New returns a validator. freshness is the age beyond which a timestamp is
// flagged as stale (warning only, not a failure).
func New(logger *zap.Logger, freshness time.Duration) *Validator {
	return &Validator{
		logger:    logger.Named("validator"),
		freshness: freshness,
		now:       time.Now,
	}
}

// Intensity reports whether v is a present carbon-intensity value within
// [0, 1000] gCO2/kWh.
func (v *Validator) Intensity(value *float64) bool {
	if value == nil {
		v.logger.Warn("intensity validation failed: value absent")
		return false
	}
	if *value < minIntensity || *value > maxIntensity {
		v.logger.Warn("intensity validation failed: out of range",
			zap.Float64("value", *value),
			zap.Int("min", minIntensity),
			zap.Int("max", maxIntensity))
		return false
	}
	return true
}

// FuelPercentage reports whether perc is within [0, 100]. The fuel name is
// used only for diagnostics; the check is identical for every fuel.
func (v *Validator) FuelPercentage(fuel string, perc float64) bool {
	if perc < minPercentage || perc > maxPercentage {
		v.logger.Warn("fuel percentage validation failed: out of range",
			zap.String("fuel", fuel),
			zap.Float64("percentage", perc))
		return false
	}
	return true
}

// Timestamp reports whether ts is present. A timestamp older than the
// freshness window logs a staleness warning but still validates.
func (v *Validator) Timestamp(ts time.Time) bool {
	if ts.IsZero() {
		v.logger.Warn("timestamp validation failed: value absent")
		return false
	}
	if age := v.now().Sub(ts); age > v.freshness {
		v.logger.Warn("timestamp is stale",
			zap.Time("timestamp", ts),
			zap.Duration("age", age),
			zap.Duration("freshness_window", v.freshness))
	}
	return true
}
