package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	queueWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirrorpond",
			Subsystem: "orchestrator",
			Name:      "queue_wait_seconds",
			Help:      "Time spent waiting for the model session",
			Buckets:   []float64{.001, .01, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	generationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mirrorpond",
			Subsystem: "orchestrator",
			Name:      "generation_duration_seconds",
			Help:      "Duration of single generation calls",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"pass"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirrorpond",
			Subsystem: "orchestrator",
			Name:      "generations_total",
			Help:      "Generation calls by pass and outcome",
		},
		[]string{"pass", "outcome"},
	)

	reflectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirrorpond",
			Subsystem: "orchestrator",
			Name:      "reflections_total",
			Help:      "Reflection requests by mode and result",
		},
		[]string{"mode", "result"},
	)

	guidingQuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirrorpond",
			Subsystem: "orchestrator",
			Name:      "guiding_questions_total",
			Help:      "Guiding question passes by outcome",
		},
		[]string{"outcome"},
	)

	tokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirrorpond",
			Subsystem: "orchestrator",
			Name:      "tokens_total",
			Help:      "Tokens processed by kind",
		},
		[]string{"kind"},
	)

	sessionResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mirrorpond",
			Subsystem: "orchestrator",
			Name:      "session_resets_total",
			Help:      "Session resets after abandoned generations",
		},
	)
)

func init() {
	prometheus.MustRegister(queueWaitSeconds, generationSeconds, generationsTotal,
		reflectionsTotal, guidingQuestionsTotal, tokensTotal, sessionResetsTotal)
}
