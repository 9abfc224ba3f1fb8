package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when the series is too short for the
	// configured pivot window or ATR period. Fatal to the run.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidConfiguration is returned before any computation starts when
	// a window, range, margin or resolution is non-positive.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDegenerateLine marks a fitted angle at the vertical singularity.
	// Candidates failing this way are dropped, never surfaced to callers.
	ErrDegenerateLine = errors.New("degenerate line")

	// ErrInvalidSeries is returned for a malformed price series.
	ErrInvalidSeries = errors.New("invalid series")
)

// SeriesError points at the bar that made a series invalid.
type SeriesError struct {
	Index  int
	Reason string
}

func (e *SeriesError) Error() string {
	return fmt.Sprintf("invalid series at bar %d: %s", e.Index, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidSeries.
func (e *SeriesError) Unwrap() error { return ErrInvalidSeries }
