// Package metrics exposes the ledger's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsTotal counts committed reservations.
	ReservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketledger_reservations_total",
		Help: "Number of successfully committed reservations.",
	})

	// ReservationsRejected counts rejected reservation attempts by reason.
	ReservationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketledger_reservations_rejected_total",
		Help: "Number of rejected reservation attempts.",
	}, []string{"reason"})

	// CancellationsTotal counts committed cancellations.
	CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketledger_cancellations_total",
		Help: "Number of successfully cancelled bookings.",
	})

	// TicketsSold counts tickets across committed reservations.
	TicketsSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketledger_tickets_sold_total",
		Help: "Number of tickets across committed reservations.",
	})
)
