// Package metrics exposes Prometheus collectors for scan acquisition,
// fed from the event bus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/internal/event"
)

// Subscriber is the subscribing half of the event bus.
type Subscriber interface {
	Subscribe(topic string, fn event.Handler) func()
}

// Collector owns a private registry so tests and multiple recorders never
// collide on the global one.
type Collector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	scans     *prometheus.CounterVec
	failures  *prometheus.CounterVec
	discarded prometheus.Counter
	duration  prometheus.Histogram
	visible   prometheus.Gauge
	excluded  prometheus.Gauge
	sessions  prometheus.Counter
	saves     prometheus.Counter

	unsubs []func()
}

// New creates the collectors and registers them on a fresh registry.
func New(logger *zap.Logger) *Collector {
	c := &Collector{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wificomp_scans_total",
			Help: "Completed scan passes, by trigger.",
		}, []string{"trigger"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wificomp_scan_failures_total",
			Help: "Failed scan passes, by reason.",
		}, []string{"reason"}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wificomp_scans_discarded_total",
			Help: "Scan results that arrived after their session was finalized.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wificomp_scan_duration_seconds",
			Help:    "Wall time of a scan pass, successful or not.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		visible: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wificomp_visible_access_points",
			Help: "Access points kept from the most recent scan.",
		}),
		excluded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wificomp_excluded_access_points",
			Help: "Access points suppressed by exclusions in the most recent scan.",
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wificomp_sessions_started_total",
			Help: "Recording sessions started.",
		}),
		saves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wificomp_sessions_saved_total",
			Help: "Session files written.",
		}),
	}
	c.registry.MustRegister(c.scans, c.failures, c.discarded, c.duration,
		c.visible, c.excluded, c.sessions, c.saves)
	return c
}

// Attach subscribes the collector to the bus topics it counts.
func (c *Collector) Attach(bus Subscriber) {
	c.unsubs = append(c.unsubs,
		bus.Subscribe(event.TopicScanCompleted, c.onScanCompleted),
		bus.Subscribe(event.TopicScanFailed, c.onScanFailed),
		bus.Subscribe(event.TopicScanDiscarded, c.onScanDiscarded),
		bus.Subscribe(event.TopicSessionStarted, func(context.Context, event.Event) { c.sessions.Inc() }),
		bus.Subscribe(event.TopicSessionSaved, func(context.Context, event.Event) { c.saves.Inc() }),
	)
}

// Detach removes every subscription made by Attach.
func (c *Collector) Detach() {
	for _, u := range c.unsubs {
		u()
	}
	c.unsubs = nil
}

// Registry returns the registry the collectors live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) onScanCompleted(_ context.Context, e event.Event) {
	p, ok := e.Payload.(event.ScanCompleted)
	if !ok {
		c.logger.Debug("unexpected payload", zap.String("topic", e.Topic))
		return
	}
	trigger := "timer"
	if p.Manual {
		trigger = "manual"
	}
	c.scans.WithLabelValues(trigger).Inc()
	c.duration.Observe(p.Duration.Seconds())
	c.visible.Set(float64(p.APCount))
	c.excluded.Set(float64(p.Excluded))
}

func (c *Collector) onScanFailed(_ context.Context, e event.Event) {
	p, ok := e.Payload.(event.ScanFailed)
	if !ok {
		c.logger.Debug("unexpected payload", zap.String("topic", e.Topic))
		return
	}
	c.failures.WithLabelValues(p.Reason).Inc()
	c.duration.Observe(p.Duration.Seconds())
}

func (c *Collector) onScanDiscarded(context.Context, event.Event) {
	c.discarded.Inc()
}
