package domain

import "time"

// Invocation is one call of `<Executable> <ConfigPath>`.
type Invocation struct {
	Executable string
	ConfigPath string
	// Dir is the working directory; empty means the executable's directory.
	Dir string

	StdoutPath string
	StderrPath string

	// Timeout kills the process after the given duration; zero disables it.
	Timeout time.Duration
}

// ProcessResult is what the runner observed about a finished process.
type ProcessResult struct {
	ExitCode int
	Duration time.Duration
	TimedOut bool
	// PeakRSSBytes is zero unless memory sampling was enabled.
	PeakRSSBytes uint64
}

// ConfigRef points at a config file found under a directory tree.
type ConfigRef struct {
	Name string
	Path string
	// Rel is the path relative to the directory that was listed.
	Rel string
}
