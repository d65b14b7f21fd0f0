// Package filestore persists the catalog and booking log as JSON-lines files
// under a single data directory. Mutations rewrite the affected file through a
// temp file and os.Rename so a crash mid-write never leaves a torn file, and
// booking appends go straight to the end of the log with an fsync.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ticketledger/internal/model"
)

const (
	eventsFile   = "events.jsonl"
	bookingsFile = "bookings.jsonl"
)

// Store implements storage.EventCatalog and storage.BookingLog over flat files.
// An in-memory copy of both record sets backs all reads; the files are the
// durable source of truth reloaded at construction.
type Store struct {
	dir string

	mu       sync.RWMutex
	events   []model.Event
	bookings []model.Booking
}

// Open loads (or initializes) the data directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{dir: dir}
	if err := readLines(filepath.Join(dir, eventsFile), &s.events); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if err := readLines(filepath.Join(dir, bookingsFile), &s.bookings); err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	return s, nil
}

// Seed inserts the given events into an empty catalog. A non-empty catalog is
// left untouched.
func (s *Store) Seed(ctx context.Context, events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) > 0 {
		return nil
	}
	s.events = append(s.events, events...)
	return s.flushEvents()
}

// ─── EventCatalog ────────────────────────────────────────────────────────────

func (s *Store) Upsert(ctx context.Context, event model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.events {
		if s.events[i].Name == event.Name {
			s.events[i] = event
			replaced = true
			break
		}
	}
	if !replaced {
		s.events = append(s.events, event)
	}
	return s.flushEvents()
}

func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0:0]
	found := false
	for _, e := range s.events {
		if e.Name == name {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return false, nil
	}
	s.events = kept
	return true, s.flushEvents()
}

func (s *Store) Get(ctx context.Context, name string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.events {
		if e.Name == name {
			return e, nil
		}
	}
	return model.Event{}, model.ErrNotFound
}

func (s *Store) List(ctx context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}

// ─── BookingLog ──────────────────────────────────────────────────────────────

func (s *Store) Append(ctx context.Context, booking model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := appendLine(filepath.Join(s.dir, bookingsFile), booking); err != nil {
		return fmt.Errorf("%w: append booking: %v", model.ErrStorage, err)
	}
	s.bookings = append(s.bookings, booking)
	return nil
}

func (s *Store) Remove(ctx context.Context, bookingID, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.bookings[:0:0]
	found := false
	for _, b := range s.bookings {
		if b.BookingID == bookingID && b.Member == owner {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return false, nil
	}
	prev := s.bookings
	s.bookings = kept
	if err := s.flushBookings(); err != nil {
		s.bookings = prev
		return false, err
	}
	return true, nil
}

func (s *Store) ListAll(ctx context.Context) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out, nil
}

func (s *Store) ListByEvent(ctx context.Context, eventName string) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Booking
	for _, b := range s.bookings {
		if b.EventName == eventName {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) ListByMember(ctx context.Context, member string) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Booking
	for _, b := range s.bookings {
		if b.Member == member {
			out = append(out, b)
		}
	}
	return out, nil
}

// ─── File plumbing ───────────────────────────────────────────────────────────

func (s *Store) flushEvents() error {
	if err := writeLines(filepath.Join(s.dir, eventsFile), s.events); err != nil {
		return fmt.Errorf("%w: write events: %v", model.ErrStorage, err)
	}
	return nil
}

func (s *Store) flushBookings() error {
	if err := writeLines(filepath.Join(s.dir, bookingsFile), s.bookings); err != nil {
		return fmt.Errorf("%w: write bookings: %v", model.ErrStorage, err)
	}
	return nil
}

func readLines[T any](path string, dst *[]T) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
		*dst = append(*dst, rec)
	}
	return sc.Err()
}

// writeLines rewrites the whole file atomically: write to a temp file in the
// same directory, fsync, then rename over the target.
func writeLines[T any](path string, recs []T) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// appendLine adds a single record to the end of the file and fsyncs, so the
// caller can rely on the record existing once this returns.
func appendLine[T any](path string, rec T) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(rec); err != nil {
		return err
	}
	return f.Sync()
}
