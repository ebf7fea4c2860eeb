package yamlcfg

import (
	"os"
	"strings"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ports"
	"gopkg.in/yaml.v3"
)

var _ ports.SweepLoader = (*Store)(nil)

func (s *Store) LoadImageSweep(path string) (domain.ImageSweep, error) {
	var dto YAMLImageSweep
	if err := readYAML("yamlcfg.load_image_sweep", path, &dto); err != nil {
		return domain.ImageSweep{}, err
	}
	return MapImageSweep(path, dto)
}

func (s *Store) LoadVideoSweep(path string) (domain.VideoSweep, error) {
	var dto YAMLVideoSweep
	if err := readYAML("yamlcfg.load_video_sweep", path, &dto); err != nil {
		return domain.VideoSweep{}, err
	}
	return MapVideoSweep(path, dto)
}

func readYAML(op, path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return &domain.OpError{
			Op:   op,
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return &domain.OpError{
			Op:   op,
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}
	return nil
}

// MapImageSweep overlays dto on the default image sweep.
func MapImageSweep(path string, dto YAMLImageSweep) (domain.ImageSweep, error) {
	sw := domain.DefaultImageSweep()

	if strings.TrimSpace(dto.Template) != "" {
		sw.Template = dto.Template
	}
	if dto.Datasets != nil {
		sw.Datasets = dto.Datasets
	}
	if dto.ModelDepths != nil {
		sw.ModelDepths = dto.ModelDepths
	}
	if dto.ModelTypes != nil {
		sw.ModelTypes = dto.ModelTypes
	}
	if dto.DataTypes != nil {
		sw.DataTypes = dto.DataTypes
	}
	if dto.Ablation.Conditions != nil {
		sw.AblationConditions = dto.Ablation.Conditions
	}
	if dto.Ablation.Loaders != nil {
		sw.AblationLoaders = dto.Ablation.Loaders
	}
	if dto.Tahoma.ModelIDs != nil {
		sw.TahomaModelIDs = dto.Tahoma.ModelIDs
	}
	if strings.TrimSpace(dto.Tahoma.ModelsRoot) != "" {
		sw.TahomaModelsRoot = dto.Tahoma.ModelsRoot
	}

	if err := sw.Validate(); err != nil {
		return domain.ImageSweep{}, withPath(err, path)
	}
	return sw, nil
}

// MapVideoSweep overlays dto on the default sweep for its kind.
func MapVideoSweep(path string, dto YAMLVideoSweep) (domain.VideoSweep, error) {
	var sw domain.VideoSweep
	switch domain.VideoSweepKind(strings.ToLower(strings.TrimSpace(dto.Kind))) {
	case domain.SweepNoScope:
		sw = domain.DefaultNoScopeSweep()
	case domain.SweepBlazeIt:
		sw = domain.DefaultBlazeItSweep()
	default:
		return domain.VideoSweep{}, invalidField(path, "kind", "must be noscope or blazeit")
	}

	if strings.TrimSpace(dto.Template) != "" {
		sw.Template = dto.Template
	}
	if dto.Datasets != nil {
		sw.Datasets = mergeDatasets(dto.Datasets)
	}
	if dto.ResolutionTypes != nil {
		sw.ResolutionTypes = make([]domain.ResolutionType, 0, len(dto.ResolutionTypes))
		for _, r := range dto.ResolutionTypes {
			rt, err := domain.ParseResolutionType(r)
			if err != nil {
				return domain.VideoSweep{}, invalidField(path, "resolution_types", err.Error())
			}
			sw.ResolutionTypes = append(sw.ResolutionTypes, rt)
		}
	}
	if dto.ModelIDs != nil {
		sw.ModelIDs = dto.ModelIDs
	}
	if dto.ExpTypes != nil {
		sw.ExpTypes = dto.ExpTypes
	}

	if err := sw.Validate(); err != nil {
		return domain.VideoSweep{}, withPath(err, path)
	}
	return sw, nil
}

// mergeDatasets fills fields a sweep file leaves out from the built-in
// dataset of the same name. Other datasets without a crop get the full frame.
func mergeDatasets(in []domain.Dataset) []domain.Dataset {
	known := map[string]domain.Dataset{}
	for _, d := range domain.DefaultVideoDatasets() {
		known[d.Name] = d
	}

	out := make([]domain.Dataset, 0, len(in))
	for _, d := range in {
		if base, ok := known[d.Name]; ok {
			if d.TrainDate == "" {
				d.TrainDate = base.TrainDate
			}
			if d.BaseResolution == 0 {
				d.BaseResolution = base.BaseResolution
			}
			if d.Crop == (domain.Crop{}) {
				d.Crop = base.Crop
			}
		} else if d.Crop == (domain.Crop{}) && d.BaseResolution > 0 {
			d.Crop = domain.FullFrame(d.BaseResolution)
		}
		out = append(out, d)
	}
	return out
}

func withPath(err error, path string) error {
	if oe, ok := err.(*domain.OpError); ok && oe.Path == "" {
		cp := *oe
		cp.Path = path
		return &cp
	}
	return err
}

func invalidField(path, field, msg string) error {
	return domain.InvalidConfig("yamlcfg.validate", path, "field %s: %s", field, msg)
}
