package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики для Bot
//
// Метрики позволяют отслеживать:
// - Количество команд по типу и результату
// - Количество вложений, найденных при сканировании
// - Чем заканчиваются запросы выбора (выбор, таймаут, отмена)
// - Время выполнения всего сценария

const metricsNamespace = "mediagrab"

var (
	// commandsTotal считает полученные команды.
	// Labels:
	//   - command: ping, scan, unknown
	//   - status: ok, unauthorized, rejected_bot, error
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "bot",
			Name:      "commands_total",
			Help:      "Total number of received commands",
		},
		[]string{"command", "status"},
	)

	// scannedAttachments считает найденные вложения по категориям.
	// Labels:
	//   - category: image, video, other
	scannedAttachments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "bot",
			Name:      "scanned_attachments_total",
			Help:      "Total number of attachments found by scans",
		},
		[]string{"category"},
	)

	// scanMessages показывает распределение глубины сканирования.
	scanMessages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "bot",
			Name:      "scan_messages",
			Help:      "Number of messages examined per scan",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// promptOutcomes считает исходы запросов выбора.
	// Labels:
	//   - outcome: resolved, timed_out, superseded, error
	promptOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "bot",
			Name:      "prompt_outcomes_total",
			Help:      "Total number of selection prompts by outcome",
		},
		[]string{"outcome"},
	)

	// workflowDuration измеряет время от команды до финального статуса.
	// Включает ожидание реакции пользователя.
	workflowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "bot",
			Name:      "workflow_duration_seconds",
			Help:      "End-to-end duration of scan workflows in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 30, 60, 120, 300, 600},
		},
	)

	// activeWorkflows показывает количество выполняющихся сценариев.
	activeWorkflows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "bot",
			Name:      "active_workflows",
			Help:      "Number of scan workflows currently running",
		},
	)
)

func recordCommand(command, status string) {
	commandsTotal.WithLabelValues(command, status).Inc()
}

func recordScan(messages int, counts map[string]int) {
	scanMessages.Observe(float64(messages))
	for category, n := range counts {
		if n > 0 {
			scannedAttachments.WithLabelValues(category).Add(float64(n))
		}
	}
}

func recordPromptOutcome(outcome string) {
	promptOutcomes.WithLabelValues(outcome).Inc()
}
