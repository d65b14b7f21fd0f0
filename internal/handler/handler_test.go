package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketledger/internal/booking"
	"ticketledger/internal/inventory"
	"ticketledger/internal/model"
	"ticketledger/internal/query"
	"ticketledger/internal/storage/filestore"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := filestore.Open(t.TempDir())
	require.NoError(t, err)

	engine := inventory.NewEngine(store, store)
	coord := booking.NewCoordinator(store, store, engine, nil, zerolog.Nop())
	queries := query.NewService(store, store, engine)
	h := NewLedgerHandler(coord, queries, engine)

	r := chi.NewRouter()
	r.Get("/health", HealthCheck)
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.UpsertEvent)
		r.Get("/", h.ListUpcomingEvents)
		r.Get("/search", h.SearchEvents)
		r.Delete("/{name}", h.DeleteEvent)
	})
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.Reserve)
		r.Post("/{id}/cancel", h.Cancel)
	})
	r.Route("/members/{member}", func(r chi.Router) {
		r.Get("/bookings", h.MemberBookings)
		r.Get("/summary", h.MemberSummary)
	})
	r.Route("/reports", func(r chi.Router) {
		r.Get("/sales", h.SalesReport)
		r.Get("/events", h.EventReport)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func upsertReq(name string, capacity int) model.UpsertEventRequest {
	return model.UpsertEventRequest{
		Name:      name,
		Price:     75,
		StartTime: time.Now().Add(72 * time.Hour).Format(model.TimeLayout),
		Location:  "Arena",
		Capacity:  capacity,
	}
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/events", upsertReq("Concert B", 200))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	event := decodeBody[model.Event](t, resp)
	assert.Equal(t, "Concert B", event.Name)
	assert.Equal(t, 200, event.Capacity)

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events := decodeBody[[]model.EventAvailability](t, resp)
	require.Len(t, events, 1)
	assert.Equal(t, 200, events[0].AvailableTickets)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/events/Concert%20B", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/events/Concert%20B", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpsertEventRejectsBadInput(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/events", map[string]any{"name": "X", "price": -1, "start_time": "2030-01-01 19:00", "capacity": 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/events", map[string]any{"name": "X", "price": 10, "start_time": "not a date", "capacity": 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/events", map[string]any{"unexpected": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReserveAndCancelOverHTTP(t *testing.T) {
	srv := newServer(t)
	postJSON(t, srv.URL+"/events", upsertReq("Concert B", 200))

	resp := postJSON(t, srv.URL+"/bookings", model.ReserveRequest{
		Member: "alice", EventName: "Concert B", TicketCount: 3, Seats: []string{"A1", "A2", "A3"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	booked := decodeBody[model.Booking](t, resp)
	assert.NotEmpty(t, booked.BookingID)

	// Seat/ticket mismatch is a 400.
	resp = postJSON(t, srv.URL+"/bookings", model.ReserveRequest{
		Member: "bob", EventName: "Concert B", TicketCount: 2, Seats: []string{"B1"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown event is a 404.
	resp = postJSON(t, srv.URL+"/bookings", model.ReserveRequest{
		Member: "bob", EventName: "No Such Gig", TicketCount: 1, Seats: []string{"B1"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Overselling is a 409.
	resp = postJSON(t, srv.URL+"/bookings", model.ReserveRequest{
		Member: "bob", EventName: "Concert B", TicketCount: 198, Seats: bigSeatBlock(198),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Cancelling under the wrong member is a 404; the right member succeeds.
	resp = postJSON(t, srv.URL+"/bookings/"+booked.BookingID+"/cancel", model.CancelRequest{Member: "bob"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/bookings/"+booked.BookingID+"/cancel", model.CancelRequest{Member: "alice"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMemberAndReportViews(t *testing.T) {
	srv := newServer(t)
	postJSON(t, srv.URL+"/events", upsertReq("Concert B", 200))
	postJSON(t, srv.URL+"/bookings", model.ReserveRequest{
		Member: "alice", EventName: "Concert B", TicketCount: 2, Seats: []string{"A1", "A2"},
	})

	resp, err := http.Get(srv.URL + "/members/alice/bookings")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	partitioned := decodeBody[model.MemberBookings](t, resp)
	assert.Len(t, partitioned.Upcoming, 1)
	assert.Empty(t, partitioned.Past)

	resp, err = http.Get(srv.URL + "/reports/sales")
	require.NoError(t, err)
	defer resp.Body.Close()
	report := decodeBody[model.SalesReport](t, resp)
	assert.Equal(t, 2, report.TotalTicketsSold)
	assert.InDelta(t, 150.0, report.TotalRevenue, 0.001)

	resp, err = http.Get(srv.URL + "/reports/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	bookings := decodeBody[[]model.Booking](t, resp)
	assert.Len(t, bookings, 1)
}

// bigSeatBlock builds n distinct seat labels for oversell attempts.
func bigSeatBlock(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%c%d", 'A'+i/10, i%10)
	}
	return out
}
