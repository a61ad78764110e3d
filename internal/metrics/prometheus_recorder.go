package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "autodeployer"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	cycleDuration     prom.Histogram
	cycleOutcomes     *prom.CounterVec
	stepDuration      *prom.HistogramVec
	stepResults       *prom.CounterVec
	releaseChecks     *prom.CounterVec
	maintenanceActive prom.Gauge
	lastSuccess       prom.Gauge
}

// NewPrometheusRecorder constructs and registers the deployment collectors on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		cycleDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of deployment cycles, including the maintenance window",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		cycleOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_outcomes_total",
			Help:      "Deployment cycles by outcome",
		}, []string{"outcome"}),
		stepDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of individual deployment steps",
			Buckets:   prom.DefBuckets,
		}, []string{"step"}),
		stepResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "Deployment step results",
		}, []string{"step", "result"}),
		releaseChecks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "release_checks_total",
			Help:      "Latest release queries by result",
		}, []string{"result"}),
		maintenanceActive: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "maintenance_active",
			Help:      "1 while a maintenance window is open",
		}),
		lastSuccess: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful deployment",
		}),
	}
	reg.MustRegister(pr.cycleDuration, pr.cycleOutcomes, pr.stepDuration, pr.stepResults,
		pr.releaseChecks, pr.maintenanceActive, pr.lastSuccess)
	return pr
}

func (p *PrometheusRecorder) ObserveCycleDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.cycleDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCycleOutcome(outcome string) {
	if p == nil {
		return
	}
	p.cycleOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveStepDuration(step string, d time.Duration) {
	if p == nil {
		return
	}
	p.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStepResult(step string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stepResults.WithLabelValues(step, string(result)).Inc()
}

func (p *PrometheusRecorder) IncReleaseCheck(result ResultLabel) {
	if p == nil {
		return
	}
	p.releaseChecks.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetMaintenanceActive(active bool) {
	if p == nil {
		return
	}
	if active {
		p.maintenanceActive.Set(1)
		return
	}
	p.maintenanceActive.Set(0)
}

func (p *PrometheusRecorder) SetLastSuccess(t time.Time) {
	if p == nil {
		return
	}
	p.lastSuccess.Set(float64(t.Unix()))
}
