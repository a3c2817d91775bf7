// Package observability defines the prometheus metrics for the
// circulation core. Metrics are registered with the default registry via
// promauto and served by the API's /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Loan Lifecycle Metrics ─────────────────────────────────────────────────

// LoansActivated counts successful loan activations.
var LoansActivated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "circulo",
	Subsystem: "loans",
	Name:      "activated_total",
	Help:      "Total loans activated.",
})

// LoansReturned counts completed returns by condition.
var LoansReturned = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "circulo",
	Subsystem: "loans",
	Name:      "returned_total",
	Help:      "Total loans returned, by returned condition.",
}, []string{"condition"})

// LoanStateRejections counts refused transitions by reason.
var LoanStateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "circulo",
	Subsystem: "loans",
	Name:      "rejected_transitions_total",
	Help:      "Total refused loan state transitions, by reason.",
}, []string{"reason"})

// ─── Fine Metrics ───────────────────────────────────────────────────────────

// FinesIssued counts fines created or updated, by category.
var FinesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "circulo",
	Subsystem: "fines",
	Name:      "issued_total",
	Help:      "Total fines issued (created or amount-updated), by category.",
}, []string{"category"})

// FinesPaid counts fines marked paid.
var FinesPaid = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "circulo",
	Subsystem: "fines",
	Name:      "paid_total",
	Help:      "Total fines marked paid.",
})

// ─── Overdue Sweep Metrics ──────────────────────────────────────────────────

// SweepLoansExamined counts loans examined by the overdue sweep.
var SweepLoansExamined = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "circulo",
	Subsystem: "sweep",
	Name:      "loans_examined_total",
	Help:      "Total overdue loans examined by the sweep.",
})

// SweepFinesCreated counts overdue fines created by the sweep.
var SweepFinesCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "circulo",
	Subsystem: "sweep",
	Name:      "fines_created_total",
	Help:      "Total overdue fines created by the sweep.",
})

// SweepFinesUpdated counts overdue fines updated in place by the sweep.
var SweepFinesUpdated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "circulo",
	Subsystem: "sweep",
	Name:      "fines_updated_total",
	Help:      "Total overdue fines whose amount was updated by the sweep.",
})

// SweepErrors counts per-loan sweep failures (the sweep continues past them).
var SweepErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "circulo",
	Subsystem: "sweep",
	Name:      "errors_total",
	Help:      "Total per-loan errors encountered during sweeps.",
})

// ─── Notification Metrics ───────────────────────────────────────────────────

// NotificationsSent counts outbound fine notifications by outcome.
var NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "circulo",
	Subsystem: "notify",
	Name:      "messages_total",
	Help:      "Total outbound fine notifications, by outcome.",
}, []string{"outcome"})
