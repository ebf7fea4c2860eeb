package domain

import "time"

// Config represents the workspace configuration loaded from smol.yaml.
type Config struct {
	Paths  PathsConfig
	Runner RunnerConfig
}

type PathsConfig struct {
	TemplatesDir string
	CfgsDir      string
	SweepsDir    string
	OutDir       string
}

// RunnerConfig describes the external inference executables and trial defaults.
type RunnerConfig struct {
	Executable      string
	VideoExecutable string
	Trials          int
	SettleDelay     time.Duration
	TrialTimeout    time.Duration // zero means no timeout
}

// DefaultConfig provides sane defaults if smol.yaml is partially missing.
func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			TemplatesDir: "templates",
			CfgsDir:      "cfgs",
			SweepsDir:    "sweeps",
			OutDir:       "out",
		},
		Runner: RunnerConfig{
			Executable:      "trt/build/runner",
			VideoExecutable: "trt/build/video_runner",
			Trials:          5,
			SettleDelay:     time.Second,
		},
	}
}

// WorkspaceSpec is what an initializer needs to lay down a workspace.
type WorkspaceSpec struct {
	Root string
}
