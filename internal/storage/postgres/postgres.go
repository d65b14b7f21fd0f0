// Package postgres implements the storage interfaces over PostgreSQL.
// It uses pgx directly (no ORM); every mutation is a single statement, so
// record-level atomicity comes from the database.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketledger/internal/model"
)

// Store implements storage.EventCatalog and storage.BookingLog.
type Store struct {
	db *pgxpool.Pool
}

// New constructs a Store over an existing pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ─── EventCatalog ────────────────────────────────────────────────────────────

func (s *Store) Upsert(ctx context.Context, event model.Event) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO events (name, price, start_time, location, capacity)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO UPDATE
		 SET price = EXCLUDED.price,
		     start_time = EXCLUDED.start_time,
		     location = EXCLUDED.location,
		     capacity = EXCLUDED.capacity`,
		event.Name, event.Price, event.StartTime, event.Location, event.Capacity,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert event: %v", model.ErrStorage, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM events WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("%w: delete event: %v", model.ErrStorage, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) Get(ctx context.Context, name string) (model.Event, error) {
	var e model.Event
	err := s.db.QueryRow(ctx,
		`SELECT name, price, start_time, location, capacity
		 FROM events WHERE name = $1`,
		name,
	).Scan(&e.Name, &e.Price, &e.StartTime, &e.Location, &e.Capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, model.ErrNotFound
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *Store) List(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, price, start_time, location, capacity
		 FROM events
		 ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.Name, &e.Price, &e.StartTime, &e.Location, &e.Capacity); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ─── BookingLog ──────────────────────────────────────────────────────────────

func (s *Store) Append(ctx context.Context, booking model.Booking) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO bookings (booking_id, member, event_name, ticket_count, seats, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		booking.BookingID, booking.Member, booking.EventName,
		booking.TicketCount, model.JoinSeats(booking.Seats), booking.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: append booking: %v", model.ErrStorage, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, bookingID, owner string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM bookings WHERE booking_id = $1 AND member = $2`,
		bookingID, owner,
	)
	if err != nil {
		return false, fmt.Errorf("%w: remove booking: %v", model.ErrStorage, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListAll(ctx context.Context) ([]model.Booking, error) {
	return s.listWhere(ctx, "", "")
}

func (s *Store) ListByEvent(ctx context.Context, eventName string) ([]model.Booking, error) {
	return s.listWhere(ctx, "event_name", eventName)
}

func (s *Store) ListByMember(ctx context.Context, member string) ([]model.Booking, error) {
	return s.listWhere(ctx, "member", member)
}

func (s *Store) listWhere(ctx context.Context, column, value string) ([]model.Booking, error) {
	query := `SELECT booking_id, member, event_name, ticket_count, seats, created_at
		 FROM bookings`
	args := []any{}
	if column != "" {
		query += fmt.Sprintf(" WHERE %s = $1", column)
		args = append(args, value)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		var seats string
		if err := rows.Scan(&b.BookingID, &b.Member, &b.EventName, &b.TicketCount, &seats, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Seats = model.ParseSeats(seats)
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
