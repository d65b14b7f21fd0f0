// cmd/server is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ticketledger/internal/booking"
	"ticketledger/internal/config"
	"ticketledger/internal/database"
	"ticketledger/internal/handler"
	"ticketledger/internal/inventory"
	"ticketledger/internal/model"
	"ticketledger/internal/notify"
	"ticketledger/internal/query"
	"ticketledger/internal/storage"
	"ticketledger/internal/storage/filestore"
	"ticketledger/internal/storage/postgres"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	catalog, bookingLog, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}

	// Wire up layers.
	engine := inventory.NewEngine(catalog, bookingLog)
	pubsub := notify.NewPubSub(watermill.NewStdLogger(false, false))
	defer pubsub.Close()
	publisher := notify.NewPublisher(pubsub, logger)
	audit, err := notify.NewAuditLogger(ctx, pubsub, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("subscribe audit logger")
	}
	coordinator := booking.NewCoordinator(catalog, bookingLog, engine, publisher, logger)
	queries := query.NewService(catalog, bookingLog, engine)
	ledgerHandler := handler.NewLedgerHandler(coordinator, queries, engine)

	// Build the router.
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(logger))
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/events", func(r chi.Router) {
		r.Post("/", ledgerHandler.UpsertEvent)
		r.Get("/", ledgerHandler.ListUpcomingEvents)
		r.Get("/search", ledgerHandler.SearchEvents)
		r.Delete("/{name}", ledgerHandler.DeleteEvent)
	})
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", ledgerHandler.Reserve)
		r.Post("/{id}/cancel", ledgerHandler.Cancel)
	})
	r.Route("/members/{member}", func(r chi.Router) {
		r.Get("/bookings", ledgerHandler.MemberBookings)
		r.Get("/summary", ledgerHandler.MemberSummary)
	})
	r.Route("/reports", func(r chi.Router) {
		r.Get("/sales", ledgerHandler.SalesReport)
		r.Get("/events", ledgerHandler.EventReport)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		audit.Run()
		return nil
	})

	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return pubsub.Close()
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("server stopped")
}

// openStore selects the storage backend from config.
func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (storage.EventCatalog, storage.BookingLog, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := database.NewPool(ctx, cfg.DB, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.InitializeSchema(ctx, pool); err != nil {
			return nil, nil, err
		}
		store := postgres.New(pool)
		logger.Info().Msg("connected to postgres")
		return store, store, nil

	case config.StoreFile:
		store, err := filestore.Open(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		if cfg.SeedCatalog {
			if err := store.Seed(ctx, sampleEvents()); err != nil {
				return nil, nil, err
			}
		}
		logger.Info().Str("dir", cfg.DataDir).Msg("file store opened")
		return store, store, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

// sampleEvents mirrors the two concerts the legacy system seeded an empty
// catalog with, moved to future dates so they stay bookable.
func sampleEvents() []model.Event {
	base := time.Now().AddDate(0, 1, 0).Truncate(time.Minute)
	return []model.Event{
		{Name: "Concert A", Price: 50, StartTime: base, Location: "Stadium", Capacity: 100},
		{Name: "Concert B", Price: 75, StartTime: base.AddDate(0, 1, 0), Location: "Arena", Capacity: 200},
	}
}
