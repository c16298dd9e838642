// Package metrics exposes Prometheus instrumentation shared by the
// store, chat, and HTTP layers.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type serviceMetrics struct {
	sessionsCreatedTotal prometheus.Counter
	sessionsPurgedTotal  prometheus.Counter

	turnSaveDuration    prometheus.Histogram
	contextLoadDuration prometheus.Histogram
	historyLoadDuration prometheus.Histogram

	chatTurnsTotal     *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	completionErrors   *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *serviceMetrics
	registry    *prometheus.Registry
)

func getMetrics() *serviceMetrics {
	metricsOnce.Do(func() {
		registry = prometheus.NewRegistry()

		m := &serviceMetrics{
			sessionsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "sessions_created_total",
				Help: "Total number of chat sessions created.",
			}),
			sessionsPurgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "sessions_purged_total",
				Help: "Total number of chat sessions removed by the retention sweep.",
			}),
			turnSaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "turn_save_duration_seconds",
				Help:    "Duration of turn append operations.",
				Buckets: prometheus.DefBuckets,
			}),
			contextLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "context_load_duration_seconds",
				Help:    "Duration of context window retrievals.",
				Buckets: prometheus.DefBuckets,
			}),
			historyLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "history_load_duration_seconds",
				Help:    "Duration of full history retrievals.",
				Buckets: prometheus.DefBuckets,
			}),
			chatTurnsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "chat_turns_total",
					Help: "Total number of chat turns handled, by status.",
				},
				[]string{"status"},
			),
			completionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "completion_duration_seconds",
					Help:    "Duration of completion provider calls.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			completionErrors: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "completion_errors_total",
					Help: "Total number of failed completion provider calls.",
				},
				[]string{"provider"},
			),
		}

		registry.MustRegister(
			m.sessionsCreatedTotal,
			m.sessionsPurgedTotal,
			m.turnSaveDuration,
			m.contextLoadDuration,
			m.historyLoadDuration,
			m.chatTurnsTotal,
			m.completionDuration,
			m.completionErrors,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered forces metric registration. Component constructors
// call it so metrics exist before the first scrape.
func EnsureRegistered() {
	getMetrics()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	getMetrics()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RecordSessionCreated counts one created session.
func RecordSessionCreated() {
	getMetrics().sessionsCreatedTotal.Inc()
}

// RecordSessionsPurged counts sessions removed by a retention sweep.
func RecordSessionsPurged(n int) {
	getMetrics().sessionsPurgedTotal.Add(float64(n))
}

// RecordTurnSave observes the duration of one turn append.
func RecordTurnSave(d time.Duration) {
	getMetrics().turnSaveDuration.Observe(d.Seconds())
}

// RecordContextLoad observes the duration of one context window retrieval.
func RecordContextLoad(d time.Duration) {
	getMetrics().contextLoadDuration.Observe(d.Seconds())
}

// RecordHistoryLoad observes the duration of one full history retrieval.
func RecordHistoryLoad(d time.Duration) {
	getMetrics().historyLoadDuration.Observe(d.Seconds())
}

// RecordChatTurn counts a handled chat turn with its outcome status.
func RecordChatTurn(status string) {
	getMetrics().chatTurnsTotal.WithLabelValues(status).Inc()
}

// RecordCompletion observes one completion provider call.
func RecordCompletion(provider string, d time.Duration, err error) {
	m := getMetrics()
	m.completionDuration.WithLabelValues(provider).Observe(d.Seconds())
	if err != nil {
		m.completionErrors.WithLabelValues(provider).Inc()
	}
}
