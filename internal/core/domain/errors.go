package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by elevation lookups and sightline evaluation.
// Callers match them with errors.Is.
var (
	// ErrInvalidArgument marks malformed coordinates or a sample count below 2.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoCoverage marks a point outside all known terrain data.
	ErrNoCoverage = errors.New("no terrain coverage")
	// ErrUnavailable marks a transient failure of the elevation source.
	ErrUnavailable = errors.New("elevation source unavailable")
	// ErrNotFound marks a missing catalogue record.
	ErrNotFound = errors.New("not found")
)

// PointError identifies the profile sample whose lookup failed.
type PointError struct {
	Index int
	Point GeoPoint
	Err   error
}

func (e *PointError) Error() string {
	return fmt.Sprintf("sample %d at %s: %v", e.Index, e.Point, e.Err)
}

func (e *PointError) Unwrap() error { return e.Err }
