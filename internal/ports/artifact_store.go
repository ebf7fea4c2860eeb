package ports

import "github.com/stanford-futuredata/smol/internal/domain"

// ArtifactStore persists experiment artifacts for reproducibility.
type ArtifactStore interface {
	SaveExperiment(res domain.ExperimentResult) error
}

// ThroughputStore persists a batch-size sweep.
type ThroughputStore interface {
	SaveThroughput(dir string, res domain.ThroughputResult) error
}
