// Package metrics exposes Prometheus collectors for the reservation
// engine.  Collectors are registered on the default registry and served
// from the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingAttempts counts booking requests by outcome: created,
	// capacity, time_conflict, just_taken, invalid, error.
	BookingAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_booking_attempts_total",
		Help: "Booking attempts by outcome.",
	}, []string{"result"})

	// OverdueWarnings counts warning events emitted by the overdue sweep.
	OverdueWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_overdue_warnings_total",
		Help: "No-show warnings emitted by the overdue sweep.",
	})

	// OverdueCancellations counts reservations auto-cancelled by the sweep.
	OverdueCancellations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_overdue_cancellations_total",
		Help: "Reservations auto-cancelled after a no-show.",
	})

	// FanoutDelivered counts realtime messages handed to a subscriber.
	FanoutDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_fanout_delivered_total",
		Help: "Realtime messages delivered to subscribers.",
	})

	// FanoutDropped counts realtime messages dropped because a subscriber
	// was slow or no one listened on the topic.  Delivery is best-effort.
	FanoutDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_fanout_dropped_total",
		Help: "Realtime messages dropped by the best-effort fanout.",
	})

	// RealtimeClients tracks currently connected realtime subscribers.
	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reservation_realtime_clients",
		Help: "Connected realtime subscribers.",
	})
)
