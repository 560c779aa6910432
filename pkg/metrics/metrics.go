package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Poll loop
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_monitor_ticks_total",
			Help: "Total number of monitor ticks by outcome",
		},
		[]string{"device_id", "outcome"},
	)

	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "room_monitor_tick_duration_seconds",
			Help:    "Time taken by one monitor tick",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"device_id"},
	)

	// Notifications
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_monitor_notifications_total",
			Help: "Total number of notifications attempted",
		},
		[]string{"device_id", "kind", "status"}, // kind: emergency, report, test; status: sent, failed
	)

	EmergencyActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "room_monitor_emergency_active",
			Help: "1 while the device is in emergency mode",
		},
		[]string{"device_id"},
	)

	EmergencySentCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "room_monitor_emergency_sent_count",
			Help: "Emergency notifications sent during the current excursion",
		},
		[]string{"device_id"},
	)

	// Alert records
	AlertRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_monitor_alert_records_total",
			Help: "Alert records written or skipped as duplicates",
		},
		[]string{"device_id", "status"}, // status: written, duplicate, failed
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_monitor_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)

func BoolToGauge(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
