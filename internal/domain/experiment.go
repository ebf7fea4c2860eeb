package domain

import "time"

// ExperimentMode selects how a run treats the runner's prediction dump.
type ExperimentMode string

const (
	// ModeImage scores preds.out against class-directory labels when the
	// config sets experiment-config.write-out.
	ModeImage ExperimentMode = "image"
	// ModeVideo always keeps preds.out but never scores it.
	ModeVideo ExperimentMode = "video"
)

// TrialResult is the outcome of a single invocation of the runner.
type TrialResult struct {
	Index    int     `json:"index"` // -1 for the setup run
	ExitCode int     `json:"exit_code"`
	Seconds  float64 `json:"seconds"`
	Measured bool    `json:"measured"`

	// RuntimeLines is how many stderr lines contributed to Seconds.
	RuntimeLines int `json:"runtime_lines"`
	// MalformedLines counts Runtime lines whose last token was not a number.
	MalformedLines int `json:"malformed_lines,omitempty"`

	Error string `json:"error,omitempty"`

	WallSeconds  float64 `json:"wall_seconds"`
	PeakRSSBytes uint64  `json:"peak_rss_bytes,omitempty"`

	StdoutPath string `json:"stdout_path"`
	StderrPath string `json:"stderr_path"`
}

// HostInfo describes the machine an experiment ran on.
type HostInfo struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
	CPUModel      string `json:"cpu_model"`
	CPUCores      int    `json:"cpu_cores"`
	MemoryBytes   uint64 `json:"memory_bytes"`
}

// ExperimentResult is everything measured for one config.
type ExperimentResult struct {
	ID         string         `json:"id"`
	Executable string         `json:"executable"`
	ConfigPath string         `json:"config_path"`
	OutDir     string         `json:"out_dir"`
	Mode       ExperimentMode `json:"mode"`

	// Accuracy is nil when the run did not score predictions.
	Accuracy *float64 `json:"accuracy,omitempty"`

	Setup  TrialResult   `json:"setup"`
	Trials []TrialResult `json:"trials"`
	// Times holds the total runtime of every measured trial, in trial order.
	Times []float64 `json:"times"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	Host *HostInfo `json:"host,omitempty"`
}

// FailedTrials counts trials dropped from Times.
func (r ExperimentResult) FailedTrials() int {
	n := 0
	for _, t := range r.Trials {
		if !t.Measured {
			n++
		}
	}
	return n
}

// SweepResult aggregates a run over a config directory.
type SweepResult struct {
	ID      string             `json:"id"`
	Dataset string             `json:"dataset"`
	CfgDir  string             `json:"cfg_dir"`
	OutBase string             `json:"out_base"`
	Results []ExperimentResult `json:"results"`
	// Failed lists configs whose experiment returned an error.
	Failed []SweepFailure `json:"failed,omitempty"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

type SweepFailure struct {
	ConfigPath string `json:"config_path"`
	Error      string `json:"error"`
}

// ThroughputSample is the measurement for one batch size.
type ThroughputSample struct {
	BatchSize    int     `json:"batch_size"`
	Seconds      float64 `json:"seconds"`
	ImagesPerSec float64 `json:"images_per_sec"`
}

// ThroughputResult is the outcome of a batch-size sweep.
type ThroughputResult struct {
	ConfigPath string             `json:"config_path"`
	Samples    []ThroughputSample `json:"samples"`
	Best       float64            `json:"best"`
	BestBatch  int                `json:"best_batch"`
	// StoppedAt is the batch size whose warmup failed, or zero.
	StoppedAt int `json:"stopped_at,omitempty"`
}
