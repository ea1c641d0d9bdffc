// Package metrics exports scene statistics in the Prometheus text format.
// Each Metrics owns its registry; nothing is registered globally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeusync/entities/internal/core/models"
	"github.com/zeusync/entities/internal/core/observable"
)

const namespace = "entities"

type Metrics struct {
	registry *prometheus.Registry

	frames        prometheus.Counter
	frameErrors   prometheus.Counter
	frameDuration prometheus.Histogram
	entities      prometheus.Gauge
	changes       *prometheus.CounterVec
	despawned     prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames run by the scene.",
		}),
		frameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_errors_total",
			Help:      "Frames aborted by a hook or handler error.",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Wall time spent in one frame.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scene_entities",
			Help:      "Entities currently in the scene.",
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "component_changes_total",
			Help:      "Component changes published, by kind and component type.",
		}, []string{"kind", "type"}),
		despawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "despawned_total",
			Help:      "Entities removed after their lifetime or health ran out.",
		}),
	}
	m.registry.MustRegister(m.frames, m.frameErrors, m.frameDuration, m.entities, m.changes, m.despawned)
	return m
}

// ObserveFrame records one frame that took d and left n entities in the scene.
func (m *Metrics) ObserveFrame(d time.Duration, n int, err error) {
	m.frames.Inc()
	if err != nil {
		m.frameErrors.Inc()
	}
	m.frameDuration.Observe(d.Seconds())
	m.entities.Set(float64(n))
}

func (m *Metrics) Despawned(n int) {
	m.despawned.Add(float64(n))
}

// Watch counts every change published on feed until the returned
// subscription is cancelled.
func (m *Metrics) Watch(feed models.ChangeFeed) *observable.Subscription[models.ComponentChange] {
	return feed.Subscribe(func(c models.ComponentChange) error {
		m.changes.WithLabelValues(string(c.Kind()), string(c.Component().Type())).Inc()
		return nil
	})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
