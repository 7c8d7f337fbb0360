package download

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/runixer/mediagrab/internal/media"
)

const metricsNamespace = "mediagrab"

var (
	// fileDownloadDuration measures time spent saving one attachment, retries included.
	// Labels:
	//   - category: image, video, other
	fileDownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "download",
			Name:      "file_duration_seconds",
			Help:      "Duration of attachment downloads in seconds",
			// Buckets for CDN downloads:
			// - images: 0.1-1s
			// - videos: 1-60s
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"category"},
	)

	// fileDownloadsTotal counts saved and failed attachments.
	// Labels:
	//   - category: image, video, other
	//   - status: success or error
	fileDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "download",
			Name:      "files_total",
			Help:      "Total number of attachment downloads",
		},
		[]string{"category", "status"},
	)

	// fileBytesTotal counts bytes written to disk.
	fileBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "download",
			Name:      "bytes_total",
			Help:      "Total number of attachment bytes written to disk",
		},
		[]string{"category"},
	)

	// batchDuration measures a whole batch.
	// Labels:
	//   - option: Images, Videos, Others, All
	batchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "download",
			Name:      "batch_duration_seconds",
			Help:      "Duration of download batches in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"option"},
	)
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

func recordFileDownload(c media.Category, durationSeconds float64, sizeBytes int64, success bool) {
	category := c.String()
	fileDownloadDuration.WithLabelValues(category).Observe(durationSeconds)

	status := statusSuccess
	if !success {
		status = statusError
	}
	fileDownloadsTotal.WithLabelValues(category, status).Inc()

	if success && sizeBytes > 0 {
		fileBytesTotal.WithLabelValues(category).Add(float64(sizeBytes))
	}
}

func recordBatch(label media.Label, r *Report) {
	batchDuration.WithLabelValues(string(label)).Observe(r.Duration.Seconds())
}
