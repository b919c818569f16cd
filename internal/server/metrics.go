package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turnstilehq/turnstile/internal/events"
	"github.com/turnstilehq/turnstile/pkg/api"
)

// Metrics observes the event hub and exposes workflow counters and step
// duration timings to Prometheus
type Metrics struct {
	registry      *prometheus.Registry
	eventsTotal   *prometheus.CounterVec
	stepsEnded    *prometheus.CounterVec
	notifications prometheus.Counter
	stepDuration  prometheus.Histogram
}

// NewMetrics creates and registers the workflow collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_events_total",
			Help: "Workflow lifecycle events by type.",
		}, []string{"type"}),
		stepsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_steps_ended_total",
			Help: "Finalized steps by final status.",
		}, []string{"status"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_notifications_sent_total",
			Help: "Notifications delivered to recipients.",
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "turnstile_step_duration_seconds",
			Help:    "Elapsed time from step start to finalization.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}),
	}

	m.registry.MustRegister(
		m.eventsTotal, m.stepsEnded, m.notifications, m.stepDuration,
	)
	return m
}

// Run consumes hub events until the context is cancelled
func (m *Metrics) Run(ctx context.Context, hub *events.Hub) {
	ch, cancel := hub.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			m.observe(ev)
		}
	}
}

func (m *Metrics) observe(ev *api.Event) {
	m.eventsTotal.WithLabelValues(string(ev.Type)).Inc()

	switch ev.Type {
	case api.EventStepCompleted, api.EventStepExpired:
		m.stepsEnded.WithLabelValues(string(ev.Status)).Inc()
		m.stepDuration.Observe(float64(ev.Duration) / 1000)
	case api.EventNotificationSent:
		m.notifications.Inc()
	}
}

// Handler exposes the registry for the /metrics route
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
