// Package metrics exposes prometheus counters for the billing and care workers.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	StatementRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paddock_statement_runs_total",
			Help: "Statement generation runs per outcome",
		},
		[]string{"outcome"},
	)

	StatementsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paddock_statements_created_total",
			Help: "Billing statements created",
		},
	)

	CareEventRollovers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paddock_care_event_rollovers_total",
			Help: "Recurring care events rolled over to a successor",
		},
	)

	NotificationSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paddock_notification_sends_total",
			Help: "Notification dispatch attempts per outcome",
		},
		[]string{"outcome"},
	)
)

func Register() {
	prometheus.MustRegister(StatementRuns, StatementsCreated, CareEventRollovers, NotificationSends)
}
