package ports

import "github.com/stanford-futuredata/smol/internal/domain"

// ConfigLoader loads experiment configs from a source (e.g., filesystem).
type ConfigLoader interface {
	LoadConfig(path string) (domain.ConfigDoc, error)
	ListConfigs(root string) ([]domain.ConfigRef, error)
}

// ConfigWriter persists generated experiment configs.
type ConfigWriter interface {
	WriteConfig(path string, doc domain.ConfigDoc) error
}
