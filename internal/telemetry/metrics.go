package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "signtype"

// Frame outcomes used as the "outcome" label of frames_total.
const (
	OutcomeClassified = "classified"
	OutcomeCached     = "cached"
	OutcomeDropped    = "dropped"
)

// Metrics holds the Prometheus collectors for the server. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	connections      prometheus.Counter
	activeSessions   prometheus.Gauge
	frames           *prometheus.CounterVec
	commits          *prometheus.CounterVec
	resets           prometheus.Counter
	classifyDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total websocket connections accepted.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in the registry.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames received, by outcome.",
		}, []string{"outcome"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Committed text edits, by kind.",
		}, []string{"kind"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Session resets requested by clients.",
		}),
		classifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classify_duration_seconds",
			Help:      "Time spent in the classifier per frame.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{
		m.connections, m.activeSessions, m.frames, m.commits, m.resets, m.classifyDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.activeSessions.Inc()
}

func (m *Metrics) connectionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) frame(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(outcome).Inc()
	if outcome == OutcomeClassified {
		m.classifyDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) commit(kind string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(kind).Inc()
}

func (m *Metrics) reset() {
	if m == nil {
		return
	}
	m.resets.Inc()
}
