package model

import "errors"

// Domain error taxonomy. Handlers map these to HTTP statuses with errors.Is;
// everything else is treated as an internal failure.
var (
	// ErrValidation is returned for malformed or non-positive input:
	// bad seat labels, seat/ticket count mismatch, non-positive quantities.
	ErrValidation = errors.New("validation failed")

	// ErrFormat is returned when a date-time string does not parse.
	ErrFormat = errors.New("unparseable date-time")

	// ErrNotFound is returned when an event or booking is absent, or a
	// booking is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrCapacityExceeded is returned when a reservation would oversell.
	ErrCapacityExceeded = errors.New("not enough tickets available")

	// ErrEventInPast is returned for reserve/cancel against an elapsed event.
	ErrEventInPast = errors.New("event has already started")

	// ErrStorage wraps durable-write failures.
	ErrStorage = errors.New("storage failure")
)
