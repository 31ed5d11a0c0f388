package models

import "time"

// RunStatus is the terminal outcome of one pipeline invocation.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusSkipped RunStatus = "skipped"
	RunStatusFailure RunStatus = "failure"
)

// Tracked fuel names. The generation mix is pinned to this closed set;
// anything else the upstream reports is dropped at parse time.
const (
	FuelGas     = "gas"
	FuelNuclear = "nuclear"
	FuelWind    = "wind"
	FuelSolar   = "solar"
)

// TrackedFuels lists the fuels in column order of grid_telemetry.
var TrackedFuels = []string{FuelGas, FuelNuclear, FuelWind, FuelSolar}

// TelemetryReading is one measurement window of grid carbon data.
// Timestamp is upstream-supplied and acts as the idempotency key.
type TelemetryReading struct {
	ID               int64
	Timestamp        time.Time
	OverallIntensity float64
	FuelMix          map[string]float64
}

// RunLog records the outcome of a single pipeline invocation. Exactly one
// entry is written per run, including runs that fail before persistence.
type RunLog struct {
	ID              int64
	RunTimestamp    time.Time
	Status          RunStatus
	RowsInserted    int
	ExecutionTimeMs int64
	ErrorMessage    string
}
