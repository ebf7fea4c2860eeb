package cfggen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/stanford-futuredata/smol/internal/app/template"
	"github.com/stanford-futuredata/smol/internal/domain"
)

// VideoParams selects one point of a video sweep.
type VideoParams struct {
	Dataset    domain.Dataset
	ModelID    string
	Resolution domain.ResolutionType
	// ExpType is only read by BlazeIt.
	ExpType string
}

func (p VideoParams) fileName() string {
	return fmt.Sprintf("%s-%s.yaml", p.Resolution, p.ModelID)
}

func isRN50(modelID string) bool { return strings.Contains(modelID, "rn50") }

// NoScope builds a binary-classification video config.
func NoScope(tmpl domain.ConfigDoc, outDir string, p VideoParams) (Generated, error) {
	mult, err := p.Resolution.Multiplier(p.Dataset.BaseResolution)
	if err != nil {
		return Generated{}, err
	}

	epoch, input := "04", dims(50, 50)
	if isRN50(p.ModelID) {
		epoch, input = "00", dims(224, 224)
	}

	doc := tmpl.Clone()
	if _, err := formatField(doc, "onnx-path", p.Dataset.Name, p.Dataset.TrainDate, p.ModelID, epoch); err != nil {
		return Generated{}, err
	}
	if err := finishVideo(doc, p, input, mult); err != nil {
		return Generated{}, err
	}
	return Generated{Path: filepath.Join(outDir, p.fileName()), Doc: doc}, nil
}

// blazeTrn10Suffix is the tail of the BlazeIt onnx template, in characters,
// dropped for the specialized trn10 models, whose file name is built here instead.
const blazeTrn10Suffix = 11

// BlazeIt builds a counting or limit-query video config.
func BlazeIt(tmpl domain.ConfigDoc, outDir string, p VideoParams) (Generated, error) {
	mult, err := p.Resolution.Multiplier(p.Dataset.BaseResolution)
	if err != nil {
		return Generated{}, err
	}

	doc := tmpl.Clone()
	key := domain.ModelKey("onnx-path")
	onnxTmpl, err := doc.String(key...)
	if err != nil {
		return Generated{}, err
	}

	var onnx string
	input := dims(224, 224)
	if isRN50(p.ModelID) {
		onnx, err = template.Format(onnxTmpl, p.ExpType, p.Dataset.Name, p.Dataset.TrainDate, p.ModelID, "00.batch150")
	} else {
		input = dims(65, 65)
		runes := []rune(onnxTmpl)
		if len(runes) < blazeTrn10Suffix {
			return Generated{}, domain.InvalidConfig("cfggen.blazeit", "", "onnx-path template %q is too short", onnxTmpl)
		}
		fname := fmt.Sprintf("%s-%s-trn10.batch150.onnx", p.Dataset.Name, p.Dataset.TrainDate)
		onnx, err = template.Format(string(runes[:len(runes)-blazeTrn10Suffix]), p.ExpType, "trn10", fname)
	}
	if err != nil {
		return Generated{}, err
	}

	if err := doc.Set(onnx, key...); err != nil {
		return Generated{}, err
	}
	if err := setModel(doc, "engine-path", strings.ReplaceAll(onnx, "onnx", "engine")); err != nil {
		return Generated{}, err
	}
	if err := finishVideo(doc, p, input, mult); err != nil {
		return Generated{}, err
	}
	return Generated{Path: filepath.Join(outDir, p.fileName()), Doc: doc}, nil
}

func finishVideo(doc domain.ConfigDoc, p VideoParams, input []int, mult float64) error {
	if _, err := formatField(doc, "data-path", string(p.Resolution), p.Dataset.Name); err != nil {
		return err
	}
	if err := setModel(doc, "input-dim", input); err != nil {
		return err
	}
	return setCrop(doc, p.Dataset.Crop.Scale(mult))
}
