// Package storage defines the durable substrate the ledger is built on:
// a keyed event catalog and an append-oriented booking log. Implementations
// must make every mutation atomic at record granularity so concurrent readers
// never observe a partially written state.
package storage

import (
	"context"

	"ticketledger/internal/model"
)

// EventCatalog is the durable store of event definitions.
type EventCatalog interface {
	// Upsert replaces all fields of the event with the same name, or appends
	// a new entry. The write is durable before Upsert returns.
	Upsert(ctx context.Context, event model.Event) error

	// Delete removes the entry if present and reports whether it existed.
	// It does not cascade to bookings.
	Delete(ctx context.Context, name string) (bool, error)

	// Get returns the event or model.ErrNotFound.
	Get(ctx context.Context, name string) (model.Event, error)

	// List returns all events in insertion order.
	List(ctx context.Context) ([]model.Event, error)
}

// BookingLog is the durable, append-preferred store of booking records.
type BookingLog interface {
	// Append persists a new booking, durable before returning.
	Append(ctx context.Context, booking model.Booking) error

	// Remove deletes the booking iff it exists and belongs to owner, and
	// reports whether anything was removed.
	Remove(ctx context.Context, bookingID, owner string) (bool, error)

	// ListAll returns every booking in the log.
	ListAll(ctx context.Context) ([]model.Booking, error)

	// ListByEvent returns bookings referencing the named event.
	ListByEvent(ctx context.Context, eventName string) ([]model.Booking, error)

	// ListByMember returns bookings owned by member.
	ListByMember(ctx context.Context, member string) ([]model.Booking, error)
}
