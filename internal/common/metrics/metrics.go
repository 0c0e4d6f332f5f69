// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_sent_total",
			Help: "Total number of per-device notifications accepted by the provider",
		},
		[]string{"source"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_failed_total",
			Help: "Total number of per-device notification failures",
		},
		[]string{"source", "reason"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "push_dispatch_duration_seconds",
			Help: "Duration of a full multicast dispatch in seconds",
		},
		[]string{"source"},
	)

	ReminderRowsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_reminder_rows_scanned_total",
			Help: "Total number of due rows picked up by the reminder scan",
		},
		[]string{"row_type"},
	)

	TokenExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_token_exchanges_total",
			Help: "Total number of OAuth2 token exchanges performed",
		},
		[]string{"outcome"},
	)
)
