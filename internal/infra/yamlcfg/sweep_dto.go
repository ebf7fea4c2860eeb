package yamlcfg

import "github.com/stanford-futuredata/smol/internal/domain"

// YAMLImageSweep is the on-disk form of an image sweep. Omitted fields keep
// the built-in defaults.
type YAMLImageSweep struct {
	Template    string                  `yaml:"template"`
	Datasets    []string                `yaml:"datasets"`
	ModelDepths []string                `yaml:"model_depths"`
	ModelTypes  []string                `yaml:"model_types"`
	DataTypes   []domain.DataLoaderPair `yaml:"data_types"`

	Ablation struct {
		Conditions []string `yaml:"conditions"`
		Loaders    []string `yaml:"loaders"`
	} `yaml:"ablation"`

	Tahoma struct {
		ModelIDs   []string `yaml:"model_ids"`
		ModelsRoot string   `yaml:"models_root"`
	} `yaml:"tahoma"`
}

// YAMLVideoSweep is the on-disk form of a noscope or blazeit sweep.
type YAMLVideoSweep struct {
	Kind            string           `yaml:"kind"`
	Template        string           `yaml:"template"`
	Datasets        []domain.Dataset `yaml:"datasets"`
	ResolutionTypes []string         `yaml:"resolution_types"`
	ModelIDs        []string         `yaml:"model_ids"`
	ExpTypes        []string         `yaml:"exp_types"`
}
