package domain

import (
	"strconv"
	"strings"
)

// DataLoaderPair couples an on-disk image variant with the loader that reads it.
type DataLoaderPair struct {
	DataType   string `yaml:"data_type" json:"data_type"`
	DataLoader string `yaml:"data_loader" json:"data_loader"`
}

// ImageSweep is the parameter space for image-classification configs.
type ImageSweep struct {
	Template string

	Datasets    []string
	ModelDepths []string
	// ModelTypes are filename patterns: the first {} is the depth and the
	// escaped {{}} survives as the batch-size placeholder.
	ModelTypes []string
	DataTypes  []DataLoaderPair

	AblationConditions []string
	AblationLoaders    []string

	TahomaModelIDs   []string
	TahomaModelsRoot string
}

// VideoSweepKind selects which video generator a sweep drives.
type VideoSweepKind string

const (
	SweepNoScope VideoSweepKind = "noscope"
	SweepBlazeIt VideoSweepKind = "blazeit"
)

// VideoSweep is the parameter space for video configs.
type VideoSweep struct {
	Kind     VideoSweepKind
	Template string

	Datasets        []Dataset
	ResolutionTypes []ResolutionType
	ModelIDs        []string
	// ExpTypes is only used by BlazeIt sweeps.
	ExpTypes []string
}

func DefaultImageSweep() ImageSweep {
	return ImageSweep{
		Template:    "im-single-full-base.yaml",
		Datasets:    []string{"bike-bird", "birds-200", "animals-10", "imagenet"},
		ModelDepths: []string{"rn18", "rn34", "rn50"},
		ModelTypes: []string{
			"fullres_{}_ft.bs{{}}.onnx",
			"thumbnail_{}_upsample_ft.bs{{}}.onnx",
		},
		DataTypes: []DataLoaderPair{
			{DataType: "full", DataLoader: "naive"},
			{DataType: "full", DataLoader: "opt-jpg"},
			{DataType: "161-jpeg-75", DataLoader: "opt-jpg"},
			{DataType: "161-jpeg-95", DataLoader: "opt-jpg"},
			{DataType: "161-png", DataLoader: "opt-png"},
		},
		AblationConditions: []string{"decode-only", "decode-resize", "decode-resize-norm", "all"},
		AblationLoaders:    []string{"opt-jpg", "naive"},
		TahomaModelIDs:     []string{"0", "1", "2", "3", "4", "5", "6", "7"},
		TahomaModelsRoot:   "models/tahoma",
	}
}

func DefaultNoScopeSweep() VideoSweep {
	return VideoSweep{
		Kind:            SweepNoScope,
		Template:        "vid-base.yaml",
		Datasets:        DefaultVideoDatasets(),
		ResolutionTypes: []ResolutionType{Resolution480p, ResolutionHires},
		ModelIDs:        []string{"rn50", "0", "1", "2", "3", "4", "5"},
	}
}

func DefaultBlazeItSweep() VideoSweep {
	return VideoSweep{
		Kind:            SweepBlazeIt,
		Template:        "blaze-base.yaml",
		Datasets:        DefaultVideoDatasets(),
		ResolutionTypes: []ResolutionType{Resolution480p, ResolutionHires},
		ModelIDs:        []string{"rn50", "trn10"},
		ExpTypes:        []string{"blazeit-count", "blazeit-limit"},
	}
}

// Validate checks that the sweep can produce at least one well-formed config.
func (s VideoSweep) Validate() error {
	if s.Kind != SweepNoScope && s.Kind != SweepBlazeIt {
		return InvalidConfig("sweep.validate", "", "unknown video sweep kind %q", string(s.Kind))
	}
	if strings.TrimSpace(s.Template) == "" {
		return InvalidConfig("sweep.validate", "", "template is required")
	}
	for i, d := range s.Datasets {
		if strings.TrimSpace(d.Name) == "" {
			return InvalidConfig("sweep.validate", "", "datasets[%d].name is required", i)
		}
		if d.BaseResolution <= 0 {
			return InvalidConfig("sweep.validate", "", "datasets[%d] (%s): base_resolution must be positive", i, d.Name)
		}
		if !d.Crop.Valid() {
			return InvalidConfig("sweep.validate", "", "datasets[%d] (%s): crop %+v has no area", i, d.Name, d.Crop)
		}
	}
	for _, r := range s.ResolutionTypes {
		if _, err := ParseResolutionType(string(r)); err != nil {
			return InvalidConfig("sweep.validate", "", "%s", err.Error())
		}
	}
	if s.Kind == SweepBlazeIt && len(s.ExpTypes) == 0 {
		return InvalidConfig("sweep.validate", "", "blazeit sweeps need at least one exp type")
	}
	return nil
}

// Size returns how many configs the sweep will generate.
func (s VideoSweep) Size() int {
	n := len(s.Datasets) * len(s.ResolutionTypes) * len(s.ModelIDs)
	if s.Kind == SweepBlazeIt {
		n *= len(s.ExpTypes)
	}
	return n
}

// Validate checks the image sweep for empty axes that would silently generate nothing.
func (s ImageSweep) Validate() error {
	if strings.TrimSpace(s.Template) == "" {
		return InvalidConfig("sweep.validate", "", "template is required")
	}
	for i, p := range s.DataTypes {
		if p.DataType == "" || p.DataLoader == "" {
			return InvalidConfig("sweep.validate", "", "data_types[%d]: data_type and data_loader are required", i)
		}
	}
	for _, id := range s.TahomaModelIDs {
		if _, err := strconv.Atoi(id); err != nil {
			return InvalidConfig("sweep.validate", "", "tahoma model id %q is not numeric", id)
		}
	}
	return nil
}
