package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backcar_bookings_created_total",
		Help: "Total number of bookings successfully created.",
	})

	BookingConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backcar_booking_conflicts_total",
		Help: "Total number of booking requests refused because of overlapping dates.",
	})

	PriceOverridesFlaggedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backcar_price_overrides_flagged_total",
		Help: "Total number of bookings whose client total deviated beyond tolerance.",
	})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backcar_rental_transitions_total",
		Help: "Total number of accepted rental and payment transitions.",
	},
		[]string{"event"},
	)

	TransitionsRefusedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backcar_rental_transitions_refused_total",
		Help: "Total number of transitions refused by a state machine guard.",
	},
		[]string{"event"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backcar_operation_errors_total",
		Help: "Total number of unexpected errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backcar_notification_failures_total",
		Help: "Total number of notifications that could not be delivered.",
	},
		[]string{"channel"},
	)

	VehiclesRepairedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backcar_vehicles_repaired_total",
		Help: "Total number of vehicles whose status was corrected by reconciliation.",
	})

	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backcar_job_runs_total",
		Help: "Total number of scheduled job runs by outcome.",
	},
		[]string{"job", "result"},
	)
)
