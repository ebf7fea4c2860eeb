package metrics

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ports"
	"github.com/stanford-futuredata/smol/internal/usecase/trial"
)

// Textfile writes a sweep snapshot in the Prometheus text exposition format,
// suitable for the node_exporter textfile collector.
type Textfile struct {
	path string
}

func NewTextfile(path string) *Textfile {
	return &Textfile{path: path}
}

var _ ports.MetricsSink = (*Textfile)(nil)

func (t *Textfile) Path() string { return t.path }

func (t *Textfile) WriteSweep(res domain.SweepResult) error {
	reg := Collect(res)

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return &domain.OpError{
			Op:   "metrics.mkdir",
			Kind: domain.KindExecution,
			Path: filepath.Dir(t.path),
			Err:  err,
		}
	}
	if err := prometheus.WriteToTextfile(t.path, reg); err != nil {
		return &domain.OpError{
			Op:   "metrics.write",
			Kind: domain.KindExecution,
			Path: t.path,
			Err:  err,
		}
	}
	return nil
}

// Collect builds a registry holding the sweep's gauges.
func Collect(res domain.SweepResult) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	labels := []string{"dataset", "config"}

	meanSeconds := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "smol",
		Name:      "experiment_mean_seconds",
		Help:      "Mean runtime of measured trials.",
	}, labels)
	stddevSeconds := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "smol",
		Name:      "experiment_stddev_seconds",
		Help:      "Sample standard deviation of measured trial runtimes.",
	}, labels)
	accuracy := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "smol",
		Name:      "experiment_accuracy_percent",
		Help:      "Top-1 accuracy of the setup run predictions.",
	}, labels)
	trials := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "smol",
		Name:      "experiment_trials",
		Help:      "Trials per experiment by outcome.",
	}, append(labels, "outcome"))
	peakRSS := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "smol",
		Name:      "experiment_peak_rss_bytes",
		Help:      "Largest resident set size sampled across trials.",
	}, labels)
	experiments := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "smol",
		Name:      "sweep_experiments",
		Help:      "Experiments in the sweep by status.",
	}, []string{"dataset", "status"})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "smol",
		Name:        "sweep_duration_seconds",
		Help:        "Wall-clock duration of the sweep.",
		ConstLabels: prometheus.Labels{"dataset": res.Dataset},
	})

	reg.MustRegister(meanSeconds, stddevSeconds, accuracy, trials, peakRSS, experiments, duration)

	for _, r := range res.Results {
		l := prometheus.Labels{"dataset": res.Dataset, "config": configLabel(res.CfgDir, r.ConfigPath)}

		sum := trial.Summarize(r.Times)
		meanSeconds.With(l).Set(sum.Mean)
		stddevSeconds.With(l).Set(sum.StdDev)
		if r.Accuracy != nil {
			accuracy.With(l).Set(*r.Accuracy)
		}

		var maxRSS uint64
		for _, tr := range r.Trials {
			if tr.PeakRSSBytes > maxRSS {
				maxRSS = tr.PeakRSSBytes
			}
		}
		if maxRSS > 0 {
			peakRSS.With(l).Set(float64(maxRSS))
		}

		trials.With(withOutcome(l, "measured")).Set(float64(len(r.Times)))
		trials.With(withOutcome(l, "failed")).Set(float64(r.FailedTrials()))
	}

	experiments.WithLabelValues(res.Dataset, "ok").Set(float64(len(res.Results)))
	experiments.WithLabelValues(res.Dataset, "failed").Set(float64(len(res.Failed)))
	if !res.StartedAt.IsZero() && !res.EndedAt.IsZero() {
		duration.Set(res.EndedAt.Sub(res.StartedAt).Seconds())
	}
	return reg
}

func withOutcome(l prometheus.Labels, outcome string) prometheus.Labels {
	out := prometheus.Labels{"outcome": outcome}
	for k, v := range l {
		out[k] = v
	}
	return out
}

func configLabel(root, path string) string {
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil {
			return rel
		}
	}
	return filepath.Base(path)
}
