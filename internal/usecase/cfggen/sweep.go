package cfggen

import (
	"path/filepath"

	"github.com/stanford-futuredata/smol/internal/domain"
)

// ImageSweep expands the end-to-end image configs into root/<dataset>/full.
func ImageSweep(tmpl domain.ConfigDoc, root string, sw domain.ImageSweep) ([]Generated, error) {
	var out []Generated
	for _, dataset := range sw.Datasets {
		dir := filepath.Join(root, dataset, "full")
		for _, depth := range sw.ModelDepths {
			for _, mt := range sw.ModelTypes {
				for _, dl := range sw.DataTypes {
					g, err := Image(tmpl, dir, ImageParams{
						Dataset:    dataset,
						ModelDepth: depth,
						ModelType:  mt,
						DataType:   dl.DataType,
						DataLoader: dl.DataLoader,
					})
					if err != nil {
						return nil, err
					}
					out = append(out, g)
				}
			}
		}
	}
	return out, nil
}

// AblationSweep expands the preprocessing ablation configs.
func AblationSweep(tmpl domain.ConfigDoc, root string, sw domain.ImageSweep) ([]Generated, error) {
	var out []Generated
	for _, dataset := range sw.Datasets {
		for _, cond := range sw.AblationConditions {
			for _, loader := range sw.AblationLoaders {
				g, err := Ablation(tmpl, root, dataset, cond, loader)
				if err != nil {
					return nil, err
				}
				out = append(out, g)
			}
		}
	}
	return out, nil
}

// TahomaSweep expands the Tahoma model zoo into root/tahoma/<dataset>.
func TahomaSweep(tmpl domain.ConfigDoc, root string, sw domain.ImageSweep) ([]Generated, error) {
	var out []Generated
	for _, dataset := range sw.Datasets {
		dir := filepath.Join(root, "tahoma", dataset)
		for _, id := range sw.TahomaModelIDs {
			g, err := Tahoma(tmpl, dir, sw.TahomaModelsRoot, dataset, id)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
	}
	return out, nil
}

// VideoSweep expands a noscope sweep into root/noscope/<dataset> or a blazeit
// sweep into root/<exp type>/<dataset>.
func VideoSweep(tmpl domain.ConfigDoc, root string, sw domain.VideoSweep) ([]Generated, error) {
	if err := sw.Validate(); err != nil {
		return nil, err
	}

	out := make([]Generated, 0, sw.Size())
	for _, ds := range sw.Datasets {
		for _, resol := range sw.ResolutionTypes {
			for _, id := range sw.ModelIDs {
				p := VideoParams{Dataset: ds, ModelID: id, Resolution: resol}

				if sw.Kind == domain.SweepNoScope {
					g, err := NoScope(tmpl, filepath.Join(root, "noscope", ds.Name), p)
					if err != nil {
						return nil, err
					}
					out = append(out, g)
					continue
				}

				for _, exp := range sw.ExpTypes {
					p.ExpType = exp
					g, err := BlazeIt(tmpl, filepath.Join(root, exp, ds.Name), p)
					if err != nil {
						return nil, err
					}
					out = append(out, g)
				}
			}
		}
	}
	return out, nil
}
