package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SchedulerTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_scheduler_ticks_total",
			Help: "Total number of scheduler ticks executed",
		},
	)

	SchedulerTickErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_scheduler_tick_errors_total",
			Help: "Total number of scheduler ticks that failed and triggered backoff",
		},
	)

	UserScans = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_user_scans_total",
			Help: "Total number of per-user scans executed",
		},
	)

	TemplateScans = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_template_scans_total",
			Help: "Total number of per-template scans executed",
		},
	)

	ChatFetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_chat_fetch_failures_total",
			Help: "Total number of chat fetches that failed after retries",
		},
	)

	KeywordMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_keyword_matches_total",
			Help: "Total number of messages that matched at least one keyword",
		},
	)

	ClassifierResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_classifier_results_total",
			Help: "Classification gate outcomes",
		},
		[]string{"outcome"},
	)

	LeadsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_leads_recorded_total",
			Help: "Total number of lead records created",
		},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_notification_failures_total",
			Help: "Total number of notification deliveries that failed",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "monitor_user_scan_duration_seconds",
			Help: "Duration of one per-user scan in seconds",
		},
	)
)
