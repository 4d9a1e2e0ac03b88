package monitor

import (
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/3ngin33r0d1y/API-Monitoring/internal/compliance"
)

type evaluationMetrics struct {
	evaluations *prometheus.CounterVec
	duration    prometheus.Histogram
	score       prometheus.Gauge
	services    prometheus.Gauge
	violations  *prometheus.GaugeVec
}

func newEvaluationMetrics(reg prometheus.Registerer, log *slog.Logger) *evaluationMetrics {
	m := &evaluationMetrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apimon",
			Subsystem: "compliance",
			Name:      "evaluations_total",
			Help:      "Count of compliance evaluations by outcome",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "apimon",
			Subsystem: "compliance",
			Name:      "evaluation_duration_seconds",
			Help:      "Latency distribution of compliance evaluations",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "apimon",
			Subsystem: "compliance",
			Name:      "score_percent",
			Help:      "Fleet compliance score from the latest evaluation",
		}),
		services: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "apimon",
			Subsystem: "compliance",
			Name:      "services_total",
			Help:      "Services observed in the latest evaluation",
		}),
		violations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "apimon",
			Subsystem: "compliance",
			Name:      "violations",
			Help:      "Violations in the latest evaluation by severity",
		}, []string{"severity"}),
	}

	collectors := []prometheus.Collector{m.evaluations, m.duration, m.score, m.services, m.violations}
	for i, collector := range collectors {
		err := reg.Register(collector)
		if err == nil {
			continue
		}
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			log.Error("metric registration failed", "error", err)
			continue
		}
		switch i {
		case 0:
			m.evaluations = are.ExistingCollector.(*prometheus.CounterVec)
		case 1:
			m.duration = are.ExistingCollector.(prometheus.Histogram)
		case 2:
			m.score = are.ExistingCollector.(prometheus.Gauge)
		case 3:
			m.services = are.ExistingCollector.(prometheus.Gauge)
		case 4:
			m.violations = are.ExistingCollector.(*prometheus.GaugeVec)
		}
	}
	return m
}

func (m *evaluationMetrics) recordEvaluation(result string, elapsed time.Duration) {
	m.evaluations.WithLabelValues(result).Inc()
	if result == "ok" {
		m.duration.Observe(elapsed.Seconds())
	}
}

func (m *evaluationMetrics) recordResult(result *compliance.Result) {
	m.score.Set(float64(result.ScorePercent))
	m.services.Set(float64(result.TotalServices))

	critical, warning := 0, 0
	for _, v := range result.Violations {
		switch v.Severity {
		case compliance.SeverityCritical:
			critical++
		case compliance.SeverityWarning:
			warning++
		}
	}
	m.violations.WithLabelValues(compliance.SeverityCritical).Set(float64(critical))
	m.violations.WithLabelValues(compliance.SeverityWarning).Set(float64(warning))
}
