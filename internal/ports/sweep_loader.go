package ports

import "github.com/stanford-futuredata/smol/internal/domain"

// SweepLoader reads sweep definitions that override the built-in parameter lists.
type SweepLoader interface {
	LoadImageSweep(path string) (domain.ImageSweep, error)
	LoadVideoSweep(path string) (domain.VideoSweep, error)
}
