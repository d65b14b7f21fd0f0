// Package query provides the read-only views over the catalog and the
// booking log: upcoming events, member bookings, search, and summaries.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"ticketledger/internal/inventory"
	"ticketledger/internal/model"
	"ticketledger/internal/storage"
)

// Service composes read-only queries. It never mutates storage.
type Service struct {
	catalog   storage.EventCatalog
	log       storage.BookingLog
	inventory *inventory.Engine
}

// NewService constructs a Service.
func NewService(catalog storage.EventCatalog, log storage.BookingLog, inv *inventory.Engine) *Service {
	return &Service{catalog: catalog, log: log, inventory: inv}
}

// Filter narrows a Search. Zero-value fields are ignored; OnDate, when set,
// must be a calendar date in model.DateLayout.
type Filter struct {
	Name     string
	Location string
	OnDate   string
}

// UpcomingEvents returns future events with availability, in catalog order.
func (s *Service) UpcomingEvents(ctx context.Context) ([]model.EventAvailability, error) {
	events, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	now := time.Now()
	upcoming := lo.Filter(events, func(e model.Event, _ int) bool {
		return e.StartTime.After(now)
	})
	return s.withAvailability(ctx, upcoming)
}

// Search filters future events by case-insensitive name/location substrings
// and an optional exact calendar date.
func (s *Service) Search(ctx context.Context, filter Filter) ([]model.EventAvailability, error) {
	var onDate time.Time
	if filter.OnDate != "" {
		var err error
		onDate, err = time.ParseInLocation(model.DateLayout, filter.OnDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: want %q, got %q", model.ErrFormat, model.DateLayout, filter.OnDate)
		}
	}
	name := strings.ToLower(strings.TrimSpace(filter.Name))
	location := strings.ToLower(strings.TrimSpace(filter.Location))

	events, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	now := time.Now()
	matched := lo.Filter(events, func(e model.Event, _ int) bool {
		if !e.StartTime.After(now) {
			return false
		}
		if name != "" && !strings.Contains(strings.ToLower(e.Name), name) {
			return false
		}
		if location != "" && !strings.Contains(strings.ToLower(e.Location), location) {
			return false
		}
		if !onDate.IsZero() {
			y1, m1, d1 := e.StartTime.Date()
			y2, m2, d2 := onDate.Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				return false
			}
		}
		return true
	})
	return s.withAvailability(ctx, matched)
}

// MemberBookings splits a member's bookings into past and upcoming by event
// start time. Bookings referencing an event no longer in the catalog have no
// known start time and land in neither partition.
func (s *Service) MemberBookings(ctx context.Context, member string) (model.MemberBookings, error) {
	summaries, err := s.MemberSummary(ctx, member)
	if err != nil {
		return model.MemberBookings{}, err
	}
	now := time.Now()
	known := lo.Filter(summaries, func(sum model.BookingSummary, _ int) bool {
		return sum.StartTimeKnown
	})
	past := lo.Filter(known, func(sum model.BookingSummary, _ int) bool {
		return sum.EventStartTime.Before(now)
	})
	upcoming := lo.Filter(known, func(sum model.BookingSummary, _ int) bool {
		return !sum.EventStartTime.Before(now)
	})
	toBooking := func(sum model.BookingSummary, _ int) model.Booking { return sum.Booking }
	return model.MemberBookings{
		Past:     lo.Map(past, toBooking),
		Upcoming: lo.Map(upcoming, toBooking),
	}, nil
}

// MemberSummary returns the member's bookings enriched with each event's
// start time, where the event still exists.
func (s *Service) MemberSummary(ctx context.Context, member string) ([]model.BookingSummary, error) {
	bookings, err := s.log.ListByMember(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	events, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	starts := make(map[string]time.Time, len(events))
	for _, e := range events {
		starts[e.Name] = e.StartTime
	}

	return lo.Map(bookings, func(b model.Booking, _ int) model.BookingSummary {
		start, ok := starts[b.EventName]
		return model.BookingSummary{
			Booking:        b,
			EventStartTime: start,
			StartTimeKnown: ok,
		}
	}), nil
}

// EventReport returns every booking in the log, for the admin report view.
func (s *Service) EventReport(ctx context.Context) ([]model.Booking, error) {
	bookings, err := s.log.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (s *Service) withAvailability(ctx context.Context, events []model.Event) ([]model.EventAvailability, error) {
	out := make([]model.EventAvailability, 0, len(events))
	for _, e := range events {
		available, err := s.inventory.AvailableTickets(ctx, e.Name)
		if err != nil {
			return nil, fmt.Errorf("availability for %q: %w", e.Name, err)
		}
		out = append(out, model.EventAvailability{Event: e, AvailableTickets: available})
	}
	return out, nil
}
