package ports

import "github.com/stanford-futuredata/smol/internal/domain"

// MetricsSink exports a snapshot of a finished sweep.
type MetricsSink interface {
	WriteSweep(res domain.SweepResult) error
}

// HostDescriber describes the machine experiments run on.
type HostDescriber interface {
	Describe() (domain.HostInfo, error)
}
