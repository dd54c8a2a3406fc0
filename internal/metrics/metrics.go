package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Прием отчетов
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "public_alert_reports_total",
			Help: "Total number of submitted reports",
		},
		[]string{"source", "outcome"},
	)

	ReportSaveErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "public_alert_report_save_errors_total",
			Help: "Total number of reports that could not be persisted",
		},
	)

	// Корреляция
	UpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "public_alert_upserts_total",
			Help: "Total number of correlation upserts by result",
		},
		[]string{"result"},
	)

	VersionConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "public_alert_version_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts seen by the correlation engine",
		},
	)

	UpsertDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "public_alert_upsert_duration_seconds",
			Help:    "Duration of correlation upserts in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Рассылка
	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "public_alert_broadcast_subscribers",
			Help: "Current number of realtime subscribers",
		},
	)

	BroadcastPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "public_alert_broadcast_published_total",
			Help: "Total number of incident snapshots published to the hub",
		},
	)

	BroadcastDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "public_alert_broadcast_dropped_total",
			Help: "Total number of snapshots dropped for a subscriber",
		},
		[]string{"reason"},
	)

	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "public_alert_sink_errors_total",
			Help: "Total number of failed deliveries to external realtime sinks",
		},
		[]string{"sink"},
	)

	// Предсказания
	PredictionFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "public_alert_prediction_fallbacks_total",
			Help: "Total number of predictions replaced by the default value",
		},
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "public_alert_webhook_deliveries_total",
			Help: "Total number of webhook delivery outcomes",
		},
		[]string{"status"},
	)
)
