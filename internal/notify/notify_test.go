package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketledger/internal/model"
)

func TestPublisherDeliversBookingNotifications(t *testing.T) {
	ctx := context.Background()
	ps := NewPubSub(watermill.NopLogger{})
	defer ps.Close()

	made, err := ps.Subscribe(ctx, TopicBookingMade)
	require.NoError(t, err)
	cancelled, err := ps.Subscribe(ctx, TopicBookingCancelled)
	require.NoError(t, err)

	pub := NewPublisher(ps, zerolog.Nop())

	booking := model.Booking{
		BookingID:   "B123",
		Member:      "alice",
		EventName:   "Concert A",
		TicketCount: 2,
		Seats:       []string{"A1", "A2"},
		CreatedAt:   time.Now().UTC(),
	}
	pub.BookingMade(booking)
	pub.BookingCancelled(booking)

	select {
	case msg := <-made:
		var ev BookingMade
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		assert.Equal(t, "B123", ev.BookingID)
		assert.Equal(t, "alice", ev.Member)
		assert.Equal(t, []string{"A1", "A2"}, ev.Seats)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no booking-made notification")
	}

	select {
	case msg := <-cancelled:
		var ev BookingCancelled
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		assert.Equal(t, "B123", ev.BookingID)
		assert.Equal(t, "Concert A", ev.EventName)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no booking-cancelled notification")
	}
}

func TestAuditLoggerStopsWhenTransportCloses(t *testing.T) {
	ctx := context.Background()
	ps := NewPubSub(watermill.NopLogger{})

	audit, err := NewAuditLogger(ctx, ps, zerolog.Nop())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		audit.Run()
		close(done)
	}()

	pub := NewPublisher(ps, zerolog.Nop())
	pub.BookingMade(model.Booking{BookingID: "B1", Member: "alice", EventName: "Concert A", TicketCount: 1, Seats: []string{"A1"}})

	require.NoError(t, ps.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit logger did not stop after close")
	}
}
