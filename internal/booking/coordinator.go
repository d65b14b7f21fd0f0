// Package booking implements the reservation coordinator: the single
// write path for bookings and catalog entries. All mutations touching one
// event run under that event's lock, so an availability check and the append
// it authorizes are atomic with respect to other writers.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"github.com/rs/zerolog"

	"ticketledger/internal/inventory"
	"ticketledger/internal/metrics"
	"ticketledger/internal/model"
	"ticketledger/internal/storage"
)

// Notifier receives committed mutations. Delivery must not block the caller.
type Notifier interface {
	BookingMade(booking model.Booking)
	BookingCancelled(booking model.Booking)
}

// Coordinator serializes mutations per event and enforces the capacity and
// seat invariants.
type Coordinator struct {
	catalog   storage.EventCatalog
	log       storage.BookingLog
	inventory *inventory.Engine
	notifier  Notifier
	logger    zerolog.Logger
	locks     *eventLocks
}

// NewCoordinator wires a Coordinator. notifier may be nil.
func NewCoordinator(
	catalog storage.EventCatalog,
	log storage.BookingLog,
	inv *inventory.Engine,
	notifier Notifier,
	logger zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		catalog:   catalog,
		log:       log,
		inventory: inv,
		notifier:  notifier,
		logger:    logger,
		locks:     newEventLocks(),
	}
}

// Reserve books ticketCount seats against an event. The availability check and
// the log append happen under the event's lock; two concurrent reservations
// can therefore never both commit against the same remaining capacity.
func (c *Coordinator) Reserve(ctx context.Context, req model.ReserveRequest) (model.Booking, error) {
	booking, err := c.reserve(ctx, req)
	if err != nil {
		metrics.ReservationsRejected.WithLabelValues(rejectReason(err)).Inc()
		return model.Booking{}, err
	}

	metrics.ReservationsTotal.Inc()
	metrics.TicketsSold.Add(float64(booking.TicketCount))
	if c.notifier != nil {
		c.notifier.BookingMade(booking)
	}
	c.logger.Info().
		Str("booking_id", booking.BookingID).
		Str("member", booking.Member).
		Str("event", booking.EventName).
		Int("tickets", booking.TicketCount).
		Msg("reservation committed")
	return booking, nil
}

func (c *Coordinator) reserve(ctx context.Context, req model.ReserveRequest) (model.Booking, error) {
	req.Member = strings.TrimSpace(req.Member)
	if req.Member == "" {
		return model.Booking{}, fmt.Errorf("%w: member is required", model.ErrValidation)
	}
	if req.EventName == "" {
		return model.Booking{}, fmt.Errorf("%w: event name is required", model.ErrValidation)
	}
	if req.TicketCount <= 0 {
		return model.Booking{}, fmt.Errorf("%w: ticket count must be positive", model.ErrValidation)
	}
	if len(req.Seats) != req.TicketCount {
		return model.Booking{}, fmt.Errorf("%w: %d seats for %d tickets", model.ErrValidation, len(req.Seats), req.TicketCount)
	}
	requested := make(map[string]struct{}, len(req.Seats))
	for _, seat := range req.Seats {
		if !model.ValidSeat(seat) {
			return model.Booking{}, fmt.Errorf("%w: invalid seat label %q", model.ErrValidation, seat)
		}
		if _, dup := requested[seat]; dup {
			return model.Booking{}, fmt.Errorf("%w: seat %s listed twice", model.ErrValidation, seat)
		}
		requested[seat] = struct{}{}
	}

	unlock := c.locks.acquire(req.EventName)
	defer unlock()

	event, err := c.catalog.Get(ctx, req.EventName)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Booking{}, fmt.Errorf("%w: event %q", model.ErrNotFound, req.EventName)
		}
		return model.Booking{}, fmt.Errorf("look up event: %w", err)
	}
	if !event.StartTime.After(time.Now()) {
		return model.Booking{}, fmt.Errorf("%w: %q started %s", model.ErrEventInPast,
			event.Name, event.StartTime.Format(model.TimeLayout))
	}

	// Recompute under the lock; a check done before acquiring it could be
	// stale by the time we append.
	available, err := c.inventory.AvailableTickets(ctx, req.EventName)
	if err != nil {
		return model.Booking{}, fmt.Errorf("check availability: %w", err)
	}
	if available < req.TicketCount {
		return model.Booking{}, fmt.Errorf("%w: %d requested, %d available", model.ErrCapacityExceeded,
			req.TicketCount, available)
	}

	existing, err := c.log.ListByEvent(ctx, req.EventName)
	if err != nil {
		return model.Booking{}, fmt.Errorf("list bookings: %w", err)
	}
	for _, b := range existing {
		for _, seat := range b.Seats {
			if _, clash := requested[seat]; clash {
				return model.Booking{}, fmt.Errorf("%w: seat %s already taken", model.ErrValidation, seat)
			}
		}
	}

	booking := model.Booking{
		BookingID:   newBookingID(),
		Member:      req.Member,
		EventName:   req.EventName,
		TicketCount: req.TicketCount,
		Seats:       req.Seats,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.log.Append(ctx, booking); err != nil {
		return model.Booking{}, fmt.Errorf("append booking: %w", err)
	}
	return booking, nil
}

// Cancel removes the member's booking, freeing its tickets. Cancelling against
// an event that has already started is refused; a booking whose event has left
// the catalog can always be cancelled.
func (c *Coordinator) Cancel(ctx context.Context, member, bookingID string) error {
	if member == "" || bookingID == "" {
		return fmt.Errorf("%w: member and booking id are required", model.ErrValidation)
	}

	owned, err := c.log.ListByMember(ctx, member)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}
	var booking model.Booking
	found := false
	for _, b := range owned {
		if b.BookingID == bookingID {
			booking = b
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: booking %q", model.ErrNotFound, bookingID)
	}

	unlock := c.locks.acquire(booking.EventName)
	defer unlock()

	event, err := c.catalog.Get(ctx, booking.EventName)
	switch {
	case err == nil:
		if event.StartTime.Before(time.Now()) {
			return fmt.Errorf("%w: cannot cancel attendance at %q", model.ErrEventInPast, event.Name)
		}
	case errors.Is(err, model.ErrNotFound):
		// Event vanished from the catalog: start time is unknown, so the
		// past-event rule cannot apply.
	default:
		return fmt.Errorf("look up event: %w", err)
	}

	removed, err := c.log.Remove(ctx, bookingID, member)
	if err != nil {
		return fmt.Errorf("remove booking: %w", err)
	}
	if !removed {
		return fmt.Errorf("%w: booking %q", model.ErrNotFound, bookingID)
	}

	metrics.CancellationsTotal.Inc()
	if c.notifier != nil {
		c.notifier.BookingCancelled(booking)
	}
	c.logger.Info().
		Str("booking_id", bookingID).
		Str("member", member).
		Str("event", booking.EventName).
		Msg("booking cancelled")
	return nil
}

// CreateOrUpdateEvent validates and upserts a catalog entry. The write runs
// under the event's lock so a capacity change cannot race a reservation that
// is mid-decision on the same event.
func (c *Coordinator) CreateOrUpdateEvent(ctx context.Context, req model.UpsertEventRequest) (model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return model.Event{}, fmt.Errorf("%w: event name is required", model.ErrValidation)
	}
	if req.Price <= 0 {
		return model.Event{}, fmt.Errorf("%w: price must be positive", model.ErrValidation)
	}
	if req.Capacity <= 0 {
		return model.Event{}, fmt.Errorf("%w: capacity must be positive", model.ErrValidation)
	}
	startTime, err := time.ParseInLocation(model.TimeLayout, req.StartTime, time.Local)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: want %q, got %q", model.ErrFormat, model.TimeLayout, req.StartTime)
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = model.DefaultLocation
	}

	event := model.Event{
		Name:      req.Name,
		Price:     req.Price,
		StartTime: startTime,
		Location:  location,
		Capacity:  req.Capacity,
	}

	unlock := c.locks.acquire(event.Name)
	defer unlock()

	if err := c.catalog.Upsert(ctx, event); err != nil {
		return model.Event{}, fmt.Errorf("upsert event: %w", err)
	}
	c.logger.Info().Str("event", event.Name).Int("capacity", event.Capacity).Msg("event upserted")
	return event, nil
}

// DeleteEvent removes a catalog entry and reports whether it existed.
// Existing bookings for the event stay in the log; they degrade to dangling
// references tolerated by the read paths.
func (c *Coordinator) DeleteEvent(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("%w: event name is required", model.ErrValidation)
	}

	unlock := c.locks.acquire(name)
	defer unlock()

	existed, err := c.catalog.Delete(ctx, name)
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	if existed {
		c.logger.Info().Str("event", name).Msg("event deleted")
	}
	return existed, nil
}

// newBookingID keeps the legacy "B" prefix but derives uniqueness from random
// bits instead of the wall clock, which collides under concurrent creation.
func newBookingID() string {
	return "B" + shortuuid.New()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrFormat):
		return "format"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrEventInPast):
		return "event_in_past"
	case errors.Is(err, model.ErrCapacityExceeded):
		return "capacity"
	default:
		return "storage"
	}
}
