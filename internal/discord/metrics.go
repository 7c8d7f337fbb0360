package discord

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики для Discord-клиента
//
// Метрики позволяют отслеживать:
// - Время выполнения REST-запросов к Discord (гистограмма)
// - Количество ошибок по методам (счётчик)
// - Состояние gateway-соединения (gauge)
// - Реакции, которые не удалось доставить ожидающему промпту

const metricsNamespace = "mediagrab"

var (
	// discordRequestDuration измеряет время выполнения запросов к Discord API.
	// Labels:
	//   - method: операция клиента (fetch_history, send_message, edit_message и т.д.)
	//   - status: результат запроса (success, error)
	discordRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "discord",
			Name:      "request_duration_seconds",
			Help:      "Duration of Discord API requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "status"},
	)

	// discordRequestsTotal считает общее количество запросов к Discord API.
	discordRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "discord",
			Name:      "requests_total",
			Help:      "Total number of Discord API requests",
		},
		[]string{"method", "status"},
	)

	// discordGatewayConnected показывает, подключён ли gateway.
	// Значение 1 = подключён, 0 = нет
	discordGatewayConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "discord",
			Name:      "gateway_connected",
			Help:      "Whether the gateway connection is up (1 = connected, 0 = disconnected)",
		},
	)

	// discordEventsTotal считает полученные gateway-события.
	// Labels:
	//   - type: message_create, reaction_add
	discordEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "discord",
			Name:      "events_total",
			Help:      "Total number of gateway events received",
		},
		[]string{"type"},
	)

	// discordReactionsDropped считает реакции, отброшенные из-за переполненного буфера подписчика.
	discordReactionsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "discord",
			Name:      "reactions_dropped_total",
			Help:      "Total number of reaction events dropped because the subscriber buffer was full",
		},
	)
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

const (
	eventMessageCreate = "message_create"
	eventReactionAdd   = "reaction_add"
)

// recordRequest записывает время и результат запроса
func recordRequest(method string, durationSeconds float64, err error) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	discordRequestDuration.WithLabelValues(method, status).Observe(durationSeconds)
	discordRequestsTotal.WithLabelValues(method, status).Inc()
}

// setGatewayConnected устанавливает статус gateway-соединения
func setGatewayConnected(connected bool) {
	if connected {
		discordGatewayConnected.Set(1)
	} else {
		discordGatewayConnected.Set(0)
	}
}

func recordEvent(eventType string) {
	discordEventsTotal.WithLabelValues(eventType).Inc()
}

func recordReactionDropped() {
	discordReactionsDropped.Inc()
}
