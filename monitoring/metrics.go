package monitoring

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusRejected = "rejected"
)

var (
	consoleOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_operations_total",
			Help: "Check-ins, undos and offline bookings by outcome",
		},
		[]string{"operation", "event_id", "status"},
	)

	upstreamCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_calls_total",
			Help: "Calls to the event, payment and check-in backends",
		},
		[]string{"op", "status"},
	)

	upstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_call_duration_seconds",
			Help:    "Latency of backend calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	reconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcile_duration_seconds",
			Help:    "Time spent deriving a reconciliation view",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	loadedViews = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loaded_event_views",
			Help: "Event views currently held in memory",
		},
	)

	soldTickets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickets_sold",
			Help: "Tickets sold per event and ticket type",
		},
		[]string{"event_id", "ticket_type"},
	)

	remainingTickets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickets_remaining_to_check_in",
			Help: "Sold tickets not yet checked in per event and ticket type",
		},
		[]string{"event_id", "ticket_type"},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)
)

// TicketStats is one ticket type of one loaded event.
type TicketStats struct {
	Title     string
	Sold      int
	Remaining int
}

type ViewStats struct {
	EventID string
	Tickets []TicketStats
}

// ViewSource lists the loaded event views.
type ViewSource interface {
	ViewStats() []ViewStats
}

type Monitor struct {
	source   ViewSource
	interval time.Duration
	logger   *slog.Logger
}

func NewMonitor(source ViewSource, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{source: source, interval: interval, logger: logger}
}

// Start collects on every tick until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Collect()
			}
		}
	}()
}

func (m *Monitor) Collect() {
	stats := m.source.ViewStats()

	loadedViews.Set(float64(len(stats)))
	soldTickets.Reset()
	remainingTickets.Reset()
	for _, v := range stats {
		for _, t := range v.Tickets {
			soldTickets.WithLabelValues(v.EventID, t.Title).Set(float64(t.Sold))
			remainingTickets.WithLabelValues(v.EventID, t.Title).Set(float64(t.Remaining))
		}
	}
	goroutineCount.Set(float64(runtime.NumGoroutine()))

	m.logger.Debug("metrics collected", slog.Int("views", len(stats)))
}

func TrackOperation(operation, eventID, status string) {
	consoleOperations.WithLabelValues(operation, eventID, status).Inc()
}

// TrackUpstreamCall has the shape of upstream.CallObserver.
func TrackUpstreamCall(op string, err error, elapsed time.Duration) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	upstreamCalls.WithLabelValues(op, status).Inc()
	upstreamLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func ObserveReconcile(elapsed time.Duration) {
	reconcileDuration.Observe(elapsed.Seconds())
}
