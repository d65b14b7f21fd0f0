// Package inventory computes ticket availability and sales totals by reducing
// the booking log against catalog capacities.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"ticketledger/internal/model"
	"ticketledger/internal/storage"
)

// DefaultCapacity is assumed for bookings that reference an event no longer in
// the catalog. Legacy data can carry such references; failing here would make
// those ledgers unreadable.
const DefaultCapacity = 100

// Engine derives inventory figures. It holds no state of its own; every call
// reads the stores.
type Engine struct {
	catalog storage.EventCatalog
	log     storage.BookingLog
}

// NewEngine constructs an Engine over the given stores.
func NewEngine(catalog storage.EventCatalog, log storage.BookingLog) *Engine {
	return &Engine{catalog: catalog, log: log}
}

// AvailableTickets returns max(0, capacity - sold) for the named event.
// Events missing from the catalog fall back to DefaultCapacity.
func (e *Engine) AvailableTickets(ctx context.Context, eventName string) (int, error) {
	capacity := DefaultCapacity
	event, err := e.catalog.Get(ctx, eventName)
	switch {
	case err == nil:
		capacity = event.Capacity
	case errors.Is(err, model.ErrNotFound):
		// Fall back for dangling references.
	default:
		return 0, fmt.Errorf("resolve capacity: %w", err)
	}

	bookings, err := e.log.ListByEvent(ctx, eventName)
	if err != nil {
		return 0, fmt.Errorf("list bookings: %w", err)
	}
	sold := 0
	for _, b := range bookings {
		sold += b.TicketCount
	}
	if available := capacity - sold; available > 0 {
		return available, nil
	}
	return 0, nil
}

// TotalTicketsSold sums ticket counts over the whole log, independent of
// per-event capacity.
func (e *Engine) TotalTicketsSold(ctx context.Context) (int, error) {
	bookings, err := e.log.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list bookings: %w", err)
	}
	total := 0
	for _, b := range bookings {
		total += b.TicketCount
	}
	return total, nil
}

// TotalRevenue accumulates ticketCount * price per booking. Bookings whose
// event has left the catalog contribute nothing rather than erroring.
func (e *Engine) TotalRevenue(ctx context.Context) (float64, error) {
	events, err := e.catalog.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}
	prices := make(map[string]float64, len(events))
	for _, ev := range events {
		prices[ev.Name] = ev.Price
	}

	bookings, err := e.log.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list bookings: %w", err)
	}
	var revenue float64
	for _, b := range bookings {
		price, ok := prices[b.EventName]
		if !ok {
			continue
		}
		revenue += float64(b.TicketCount) * price
	}
	return revenue, nil
}

// SalesReport bundles both ledger-wide totals.
func (e *Engine) SalesReport(ctx context.Context) (model.SalesReport, error) {
	sold, err := e.TotalTicketsSold(ctx)
	if err != nil {
		return model.SalesReport{}, err
	}
	revenue, err := e.TotalRevenue(ctx)
	if err != nil {
		return model.SalesReport{}, err
	}
	return model.SalesReport{TotalTicketsSold: sold, TotalRevenue: revenue}, nil
}
