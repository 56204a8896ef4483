package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// PredictionsTotal counts pipeline outcomes, labeled by result and reason.
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crop",
		Subsystem: "pipeline",
		Name:      "predictions_total",
		Help:      "Total number of predictions, labeled by outcome (diagnosed, no_crop, failed) and failure reason.",
	}, []string{"result", "reason"})

	// PredictionDurationSeconds is end-to-end time spent inside Predict.
	PredictionDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crop",
		Subsystem: "pipeline",
		Name:      "prediction_duration_seconds",
		Help:      "Time from raw bytes to a terminal outcome.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"result"})

	// VegetationRatio tracks the gate input distribution, useful when tuning
	// the rejection threshold against real traffic.
	VegetationRatio = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crop",
		Subsystem: "pipeline",
		Name:      "vegetation_ratio",
		Help:      "Fraction of vegetation-like pixels per decoded image.",
		Buckets:   []float64{0.01, 0.02, 0.04, 0.06, 0.08, 0.1, 0.2, 0.4, 0.6, 0.8, 1},
	})

	// DiagnosesTotal counts diagnosed labels and whether the catalog had them.
	DiagnosesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crop",
		Subsystem: "pipeline",
		Name:      "diagnoses_total",
		Help:      "Diagnosed labels, split by whether a curated catalog entry existed.",
	}, []string{"label", "curated"})
)

// Register registers pipeline metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			PredictionsTotal,
			PredictionDurationSeconds,
			VegetationRatio,
			DiagnosesTotal,
		)
	})
}
