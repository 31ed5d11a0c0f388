package models

import (
	"errors"
	"fmt"
)

// ErrNoData indicates the upstream responded but its data collection was empty.
// Fatal to the run; never retried.
var ErrNoData = errors.New("upstream returned no data")

// ErrDuplicateTimestamp indicates a telemetry row with the same measurement
// window already exists. The run is recorded as skipped, not failed.
var ErrDuplicateTimestamp = errors.New("telemetry row with this timestamp already exists")

// TransportError is a network-level or HTTP-status failure talking to the
// upstream API. Transport errors are the only class the fetcher retries.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("transport: %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
