// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the ledger's core operations.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"ticketledger/internal/booking"
	"ticketledger/internal/inventory"
	"ticketledger/internal/model"
	"ticketledger/internal/query"
)

// LedgerHandler holds all HTTP handlers for the ticket ledger API.
type LedgerHandler struct {
	coordinator *booking.Coordinator
	queries     *query.Service
	inventory   *inventory.Engine
}

// NewLedgerHandler constructs a LedgerHandler.
func NewLedgerHandler(c *booking.Coordinator, q *query.Service, inv *inventory.Engine) *LedgerHandler {
	return &LedgerHandler{coordinator: c, queries: q, inventory: inv}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// pathParam returns a chi route parameter with percent-escapes decoded.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// writeDomainError maps the ledger's error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrCapacityExceeded), errors.Is(err, model.ErrEventInPast):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Catalog handlers ─────────────────────────────────────────────────────────

// UpsertEvent handles POST /events
// Creates a new event or fully replaces the one with the same name.
func (h *LedgerHandler) UpsertEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpsertEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.coordinator.CreateOrUpdateEvent(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{name}
func (h *LedgerHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	existed, err := h.coordinator.DeleteEvent(r.Context(), name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUpcomingEvents handles GET /events
// Returns future events with their remaining availability.
func (h *LedgerHandler) ListUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.queries.UpcomingEvents(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.EventAvailability{}
	}
	writeJSON(w, http.StatusOK, events)
}

// SearchEvents handles GET /events/search?name=&location=&date=
func (h *LedgerHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	filter := query.Filter{
		Name:     r.URL.Query().Get("name"),
		Location: r.URL.Query().Get("location"),
		OnDate:   r.URL.Query().Get("date"),
	}
	events, err := h.queries.Search(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if events == nil {
		events = []model.EventAvailability{}
	}
	writeJSON(w, http.StatusOK, events)
}

// ─── Booking handlers ─────────────────────────────────────────────────────────

// Reserve handles POST /bookings
// Books tickets against an event, race-free with respect to other callers.
func (h *LedgerHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req model.ReserveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	booked, err := h.coordinator.Reserve(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booked)
}

// Cancel handles POST /bookings/{id}/cancel
func (h *LedgerHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	bookingID := pathParam(r, "id")

	var req model.CancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.coordinator.Cancel(r.Context(), req.Member, bookingID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// ─── Member views ─────────────────────────────────────────────────────────────

// MemberBookings handles GET /members/{member}/bookings
// Returns the member's bookings partitioned into past and upcoming.
func (h *LedgerHandler) MemberBookings(w http.ResponseWriter, r *http.Request) {
	member := pathParam(r, "member")

	partitioned, err := h.queries.MemberBookings(r.Context(), member)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if partitioned.Past == nil {
		partitioned.Past = []model.Booking{}
	}
	if partitioned.Upcoming == nil {
		partitioned.Upcoming = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, partitioned)
}

// MemberSummary handles GET /members/{member}/summary
func (h *LedgerHandler) MemberSummary(w http.ResponseWriter, r *http.Request) {
	member := pathParam(r, "member")

	summaries, err := h.queries.MemberSummary(r.Context(), member)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if summaries == nil {
		summaries = []model.BookingSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// ─── Reports ──────────────────────────────────────────────────────────────────

// SalesReport handles GET /reports/sales
func (h *LedgerHandler) SalesReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.inventory.SalesReport(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// EventReport handles GET /reports/events
// Lists every booking in the ledger, for the admin report view.
func (h *LedgerHandler) EventReport(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.queries.EventReport(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
