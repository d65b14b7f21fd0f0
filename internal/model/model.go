// Package model defines the core domain types for the ticket ledger.
package model

import (
	"regexp"
	"strings"
	"time"
)

// TimeLayout is the minute-precision format events are stored and exchanged in.
const TimeLayout = "2006-01-02 15:04"

// DateLayout is the calendar-date format accepted by search filters.
const DateLayout = "2006-01-02"

// DefaultLocation is substituted when an event is created with a blank location.
const DefaultLocation = "Not specified"

// Event is a catalog entry. Name is the primary key, matched case-sensitively.
type Event struct {
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	StartTime time.Time `json:"start_time"`
	Location  string    `json:"location"`
	Capacity  int       `json:"capacity"`
}

// Booking is one member's reservation of seats against an event. A booking
// exists in the log until cancellation removes it; there is no status flag.
type Booking struct {
	BookingID   string    `json:"booking_id"`
	Member      string    `json:"member"`
	EventName   string    `json:"event_name"`
	TicketCount int       `json:"ticket_count"`
	Seats       []string  `json:"seats"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventAvailability pairs a catalog entry with its remaining ticket count.
type EventAvailability struct {
	Event
	AvailableTickets int `json:"available_tickets"`
}

// SalesReport aggregates ledger-wide sales totals.
type SalesReport struct {
	TotalTicketsSold int     `json:"total_tickets_sold"`
	TotalRevenue     float64 `json:"total_revenue"`
}

// MemberBookings partitions a member's bookings by event start time.
// Bookings whose event no longer exists in the catalog appear in neither slice.
type MemberBookings struct {
	Past     []Booking `json:"past"`
	Upcoming []Booking `json:"upcoming"`
}

// BookingSummary is a booking enriched with its event's start time.
// StartTimeKnown is false when the referenced event has left the catalog.
type BookingSummary struct {
	Booking
	EventStartTime time.Time `json:"event_start_time"`
	StartTimeKnown bool      `json:"start_time_known"`
}

// UpsertEventRequest is the payload for creating or replacing an event.
type UpsertEventRequest struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	StartTime string  `json:"start_time"`
	Location  string  `json:"location"`
	Capacity  int     `json:"capacity"`
}

// ReserveRequest is the payload for booking tickets.
type ReserveRequest struct {
	Member      string   `json:"member"`
	EventName   string   `json:"event_name"`
	TicketCount int      `json:"ticket_count"`
	Seats       []string `json:"seats"`
}

// CancelRequest identifies the member cancelling a booking.
type CancelRequest struct {
	Member string `json:"member"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// seatPattern is the seat-label grammar: one uppercase letter, one digit.
var seatPattern = regexp.MustCompile(`^[A-Z][0-9]$`)

// ValidSeat reports whether a seat label matches the grammar (e.g. "A1").
func ValidSeat(seat string) bool {
	return seatPattern.MatchString(seat)
}

// ParseSeats splits a comma-joined seat list as stored in booking records.
func ParseSeats(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}

// JoinSeats renders a seat list in the persisted comma-joined form.
func JoinSeats(seats []string) string {
	return strings.Join(seats, ",")
}
