package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned for an unknown instrument code or watchlist name.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedInterval is returned when a granularity outside the
	// enumerated set is requested.
	ErrUnsupportedInterval = errors.New("unsupported interval")

	// ErrInvalidWindow is returned when a band window smaller than 1 is requested.
	ErrInvalidWindow = errors.New("band window must be >= 1")

	// ErrBatchTooLarge is returned before any fetch when a batch exceeds MaxBatchSize.
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")

	// ErrTimeout marks an instrument whose fetch was still outstanding when
	// the batch deadline elapsed. Treated like a fetch failure by callers.
	ErrTimeout = errors.New("fetch timed out")
)

// MaxBatchSize is the hard cap on instruments per batch.
const MaxBatchSize = 12

// SchemaError reports required registry columns missing from the header.
// Fatal to catalog load.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "registry missing required columns: " + strings.Join(e.Missing, ", ")
}

// FetchError wraps an upstream quote-source failure for one symbol.
// Recoverable at the orchestrator level; recorded per instrument.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
