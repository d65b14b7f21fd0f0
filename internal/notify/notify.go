// Package notify publishes booking lifecycle notifications over an in-process
// watermill pub/sub. Subscribers get told about committed mutations; delivery
// is best-effort and never fails the mutation itself.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ticketledger/internal/model"
)

// Topics carrying booking notifications.
const (
	TopicBookingMade      = "bookings.made"
	TopicBookingCancelled = "bookings.cancelled"
)

// BookingMade is emitted after a reservation commits.
type BookingMade struct {
	BookingID   string    `json:"booking_id"`
	Member      string    `json:"member"`
	EventName   string    `json:"event_name"`
	TicketCount int       `json:"ticket_count"`
	Seats       []string  `json:"seats"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BookingCancelled is emitted after a cancellation commits.
type BookingCancelled struct {
	BookingID  string    `json:"booking_id"`
	Member     string    `json:"member"`
	EventName  string    `json:"event_name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PubSub is the in-process transport shared by publisher and subscribers.
type PubSub struct {
	channel *gochannel.GoChannel
}

// NewPubSub builds a gochannel transport.
func NewPubSub(wmLogger watermill.LoggerAdapter) *PubSub {
	return &PubSub{
		channel: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, wmLogger),
	}
}

// Close shuts the transport down and unblocks subscribers.
func (p *PubSub) Close() error {
	return p.channel.Close()
}

// Subscribe returns the message stream for a topic. Subscriptions must exist
// before the notification is published; the transport does not replay.
func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.channel.Subscribe(ctx, topic)
}

// Publisher emits booking notifications.
type Publisher struct {
	pub    message.Publisher
	logger zerolog.Logger
}

// NewPublisher constructs a Publisher over the shared transport.
func NewPublisher(ps *PubSub, logger zerolog.Logger) *Publisher {
	return &Publisher{pub: ps.channel, logger: logger}
}

// BookingMade announces a committed reservation.
func (p *Publisher) BookingMade(booking model.Booking) {
	p.publish(TopicBookingMade, BookingMade{
		BookingID:   booking.BookingID,
		Member:      booking.Member,
		EventName:   booking.EventName,
		TicketCount: booking.TicketCount,
		Seats:       booking.Seats,
		OccurredAt:  time.Now().UTC(),
	})
}

// BookingCancelled announces a committed cancellation.
func (p *Publisher) BookingCancelled(booking model.Booking) {
	p.publish(TopicBookingCancelled, BookingCancelled{
		BookingID:  booking.BookingID,
		Member:     booking.Member,
		EventName:  booking.EventName,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(topic string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("marshal notification")
		return
	}
	msg := message.NewMessage(uuid.NewString(), raw)
	if err := p.pub.Publish(topic, msg); err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("publish notification")
	}
}

// AuditLogger subscribes to both booking topics and writes an audit line per
// notification.
type AuditLogger struct {
	made      <-chan *message.Message
	cancelled <-chan *message.Message
	logger    zerolog.Logger
}

// NewAuditLogger subscribes to the shared transport.
func NewAuditLogger(ctx context.Context, ps *PubSub, logger zerolog.Logger) (*AuditLogger, error) {
	made, err := ps.Subscribe(ctx, TopicBookingMade)
	if err != nil {
		return nil, err
	}
	cancelled, err := ps.Subscribe(ctx, TopicBookingCancelled)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{made: made, cancelled: cancelled, logger: logger}, nil
}

// Run consumes notifications until both subscriptions close.
func (a *AuditLogger) Run() {
	for a.made != nil || a.cancelled != nil {
		select {
		case msg, ok := <-a.made:
			if !ok {
				a.made = nil
				continue
			}
			var ev BookingMade
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				a.logger.Error().Err(err).Msg("decode booking-made notification")
				msg.Ack()
				continue
			}
			a.logger.Info().
				Str("booking_id", ev.BookingID).
				Str("member", ev.Member).
				Str("event", ev.EventName).
				Int("tickets", ev.TicketCount).
				Strs("seats", ev.Seats).
				Msg("booking made")
			msg.Ack()
		case msg, ok := <-a.cancelled:
			if !ok {
				a.cancelled = nil
				continue
			}
			var ev BookingCancelled
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				a.logger.Error().Err(err).Msg("decode booking-cancelled notification")
				msg.Ack()
				continue
			}
			a.logger.Info().
				Str("booking_id", ev.BookingID).
				Str("member", ev.Member).
				Str("event", ev.EventName).
				Msg("booking cancelled")
			msg.Ack()
		}
	}
}
