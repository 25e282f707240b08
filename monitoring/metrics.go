package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fila-system/internal/store"
)

var (
	queueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fila_queue_length",
			Help: "Current number of people waiting in the queue",
		},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fila_operations_total",
			Help: "Total queue operations",
		},
		[]string{"operation", "status"},
	)

	serviceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fila_service_duration_seconds",
			Help:    "Time between joining the queue and being serviced",
			Buckets: prometheus.ExponentialBuckets(30, 2, 10),
		},
	)

	smsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fila_sms_total",
			Help: "Total SMS notification attempts",
		},
		[]string{"status"},
	)
)

func SetQueueLength(n int) {
	queueLength.Set(float64(n))
}

func IncOperation(operation, status string) {
	queueOperations.WithLabelValues(operation, status).Inc()
}

func ObserveServiceDuration(d time.Duration) {
	serviceDuration.Observe(d.Seconds())
}

func IncSMS(status string) {
	smsSent.WithLabelValues(status).Inc()
}

// Monitor refreshes the queue length gauge from the store on a fixed
// interval, as a fallback for changes made outside this process (direct
// edits in the store's own UI).
type Monitor struct {
	store    store.QueueStore
	interval time.Duration
}

func NewMonitor(queueStore store.QueueStore) *Monitor {
	return &Monitor{store: queueStore, interval: 30 * time.Second}
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries, err := m.store.List(ctx)
			if err != nil {
				slog.Warn("queue length collection failed", "error", err)
				continue
			}
			SetQueueLength(len(entries))
		}
	}
}
