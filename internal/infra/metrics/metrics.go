package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	XPChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xp_changes_total",
		Help: "Принятые изменения XP по типу триггера",
	}, []string{"kind"})

	XPCooldownRejectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xp_cooldown_rejects_total",
		Help: "Изменения XP, отклонённые из-за паузы",
	})

	XPIgnoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xp_ignored_total",
		Help: "Триггеры, не приведшие к изменению XP",
	}, []string{"reason"})

	RolloverRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rollover_runs_total",
		Help: "Запуски новогодней ротации",
	}, []string{"result"})

	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		XPChangesTotal,
		XPCooldownRejectsTotal,
		XPIgnoredTotal,
		RolloverRunsTotal,
		BotSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncXPChange увеличивает счётчик принятых изменений.
func IncXPChange(kind string) {
	XPChangesTotal.WithLabelValues(kind).Inc()
}

// IncCooldownReject увеличивает счётчик отказов по паузе.
func IncCooldownReject() {
	XPCooldownRejectsTotal.Inc()
}

// IncIgnored увеличивает счётчик проигнорированных триггеров.
func IncIgnored(reason string) {
	XPIgnoredTotal.WithLabelValues(reason).Inc()
}

// IncRollover фиксирует результат ротации.
func IncRollover(result string) {
	RolloverRunsTotal.WithLabelValues(result).Inc()
}
