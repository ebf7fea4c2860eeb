// Package cfggen derives experiment configs from a template document.
//
// Generators are pure: they clone the template, substitute paths and return
// the document together with the file name it should be written to.
package cfggen

import (
	"path/filepath"
	"strings"

	"github.com/stanford-futuredata/smol/internal/app/template"
	"github.com/stanford-futuredata/smol/internal/domain"
)

// Generated is one config ready to be written.
type Generated struct {
	Path string
	Doc  domain.ConfigDoc
}

const imagenetMultiplier = 4

// formatField replaces model-single.<field> with its template interpolated by args.
func formatField(doc domain.ConfigDoc, field string, args ...string) (string, error) {
	key := domain.ModelKey(field)
	tmpl, err := doc.String(key...)
	if err != nil {
		return "", err
	}
	out, err := template.Format(tmpl, args...)
	if err != nil {
		return "", err
	}
	return out, doc.Set(out, key...)
}

func setModel(doc domain.ConfigDoc, field string, value any) error {
	return doc.Set(value, domain.ModelKey(field)...)
}

func setExperiment(doc domain.ConfigDoc, field string, value any) error {
	return doc.Set(value, domain.ExperimentKey(field)...)
}

// applyDatasetMultiplier repeats imagenet four times per trial.
func applyDatasetMultiplier(doc domain.ConfigDoc, dataset string) error {
	if dataset != "imagenet" {
		return nil
	}
	return setExperiment(doc, "multiplier", imagenetMultiplier)
}

func setCrop(doc domain.ConfigDoc, c domain.Crop) error {
	for _, kv := range []struct {
		key string
		v   int
	}{
		{"xmin", c.XMin},
		{"ymin", c.YMin},
		{"xmax", c.XMax},
		{"ymax", c.YMax},
	} {
		if err := doc.Set(kv.v, append(append([]string{}, domain.KeyCrop...), kv.key)...); err != nil {
			return err
		}
	}
	return nil
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func dims(w, h int) []int { return []int{w, h} }
