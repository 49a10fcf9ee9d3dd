// Package metrics exposes the Prometheus collectors of the pipeline and the
// upload surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageRunsTotal counts finished stage runs.
	// Labels: stage, outcome (success/failed/timeout/canceled)
	StageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_audio_stage_runs_total",
			Help: "Total number of finished stage runs by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	// StageDuration observes stage run time in seconds
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smart_audio_stage_duration_seconds",
			Help:    "Stage run duration in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"stage"},
	)

	// StagesInFlight is the number of accepted stage tasks, queued or running
	StagesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smart_audio_stages_in_flight",
			Help: "Number of accepted stage tasks that have not finished",
		},
	)

	// DispatchRejectedTotal counts dispatches refused before the job was touched.
	// Labels: reason (missing_input/busy/queue_full/closed)
	DispatchRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_audio_dispatch_rejected_total",
			Help: "Total number of rejected stage dispatches by reason",
		},
		[]string{"reason"},
	)

	// UploadsTotal counts upload attempts.
	// Labels: status (accepted/rejected)
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_audio_uploads_total",
			Help: "Total number of uploads by status",
		},
		[]string{"status"},
	)

	// UploadBytes observes accepted upload sizes
	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smart_audio_upload_bytes",
			Help:    "Size of accepted uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
		},
	)
)

// RecordStageRun records a finished stage run
func RecordStageRun(stage, outcome string, elapsed time.Duration) {
	StageRunsTotal.WithLabelValues(stage, outcome).Inc()
	StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordRejection records a refused dispatch
func RecordRejection(reason string) {
	DispatchRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordUpload records an upload attempt
func RecordUpload(accepted bool, size int64) {
	if !accepted {
		UploadsTotal.WithLabelValues("rejected").Inc()
		return
	}
	UploadsTotal.WithLabelValues("accepted").Inc()
	UploadBytes.Observe(float64(size))
}
