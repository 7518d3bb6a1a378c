package titlegen

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/samcharles93/headliner/internal/decode"
)

// Metrics records generation runs. A nil *Metrics records nothing.
type Metrics struct {
	Generations    *prometheus.CounterVec
	Duration       prometheus.Histogram
	Steps          prometheus.Histogram
	ScorerFailures prometheus.Counter
	Truncations    prometheus.Counter
}

// NewMetrics registers the generation metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "headliner",
			Name:      "generations_total",
			Help:      "Title generation runs by outcome.",
		}, []string{"outcome"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "headliner",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of successful generation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		Steps: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "headliner",
			Name:      "generation_steps",
			Help:      "Decode steps per successful run.",
			Buckets:   prometheus.LinearBuckets(4, 4, 16),
		}),
		ScorerFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "headliner",
			Name:      "scorer_failures_total",
			Help:      "Runs aborted by a scorer failure.",
		}),
		Truncations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "headliner",
			Name:      "prompt_truncations_total",
			Help:      "Prompts cut to the content budget.",
		}),
	}
}

func (m *Metrics) observe(res Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(res.Outcome.String()).Inc()
	m.Duration.Observe(elapsed.Seconds())
	m.Steps.Observe(float64(res.Steps))
}

func (m *Metrics) failed(err error) {
	if m == nil {
		return
	}
	if errors.Is(err, decode.ErrScorer) {
		m.ScorerFailures.Inc()
		m.Generations.WithLabelValues("scorer_error").Inc()
		return
	}
	m.Generations.WithLabelValues("error").Inc()
}

func (m *Metrics) truncated() {
	if m != nil {
		m.Truncations.Inc()
	}
}
