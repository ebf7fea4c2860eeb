package cfggen

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/stanford-futuredata/smol/internal/app/template"
	"github.com/stanford-futuredata/smol/internal/domain"
)

// ImageParams selects one point of the image sweep.
type ImageParams struct {
	Dataset    string
	ModelDepth string
	// ModelType is a filename pattern such as fullres_{}_ft.bs{{}}.onnx.
	ModelType  string
	DataType   string
	DataLoader string
}

// Image builds a single end-to-end image classification config.
func Image(tmpl domain.ConfigDoc, outDir string, p ImageParams) (Generated, error) {
	modelFname, err := template.Format(p.ModelType, p.ModelDepth)
	if err != nil {
		return Generated{}, err
	}
	modelBase, err := template.Format(stripExt(modelFname), "64")
	if err != nil {
		return Generated{}, err
	}
	bs64, err := template.Format(modelFname, "64")
	if err != nil {
		return Generated{}, err
	}
	bs1, err := template.Format(modelFname, "1")
	if err != nil {
		return Generated{}, err
	}

	doc := tmpl.Clone()
	engineFname := strings.ReplaceAll(bs64, "onnx", fmt.Sprintf("%s-%s.engine", p.DataLoader, p.DataType))

	steps := []struct {
		field string
		args  []string
	}{
		{"onnx-path", []string{p.Dataset, bs64}},
		{"onnx-path-bs1", []string{p.Dataset, bs1}},
		{"engine-path", []string{p.Dataset, engineFname}},
		{"data-path", []string{p.Dataset, p.DataType}},
	}
	for _, s := range steps {
		if _, err := formatField(doc, s.field, s.args...); err != nil {
			return Generated{}, err
		}
	}
	if err := setModel(doc, "data-loader", p.DataLoader); err != nil {
		return Generated{}, err
	}
	if err := applyDatasetMultiplier(doc, p.Dataset); err != nil {
		return Generated{}, err
	}

	name := fmt.Sprintf("%s-%s-%s.yaml", p.DataType, p.DataLoader, modelBase)
	return Generated{Path: filepath.Join(outDir, name), Doc: doc}, nil
}

const (
	ablationModelBS64   = "fullres_rn18_ft.bs64.onnx"
	ablationModelBS1    = "fullres_rn18_ft.bs1.onnx"
	ablationModelEngine = "fullres_rn18_ft.engine"
	ablationDataType    = "full"
)

// Ablation builds a preprocessing-ablation config: inference and prediction
// dumps are disabled and exp-type selects which preprocessing stages run.
func Ablation(tmpl domain.ConfigDoc, root, dataset, condition, loader string) (Generated, error) {
	doc := tmpl.Clone()

	steps := []struct {
		field string
		args  []string
	}{
		{"onnx-path", []string{dataset, ablationModelBS64}},
		{"onnx-path-bs1", []string{dataset, ablationModelBS1}},
		{"engine-path", []string{dataset, ablationModelEngine}},
		{"data-path", []string{dataset, ablationDataType}},
	}
	for _, s := range steps {
		if _, err := formatField(doc, s.field, s.args...); err != nil {
			return Generated{}, err
		}
	}
	if err := setModel(doc, "data-loader", loader); err != nil {
		return Generated{}, err
	}
	for _, kv := range []struct {
		field string
		v     any
	}{
		{"run-infer", false},
		{"write-out", false},
		{"exp-type", condition},
	} {
		if err := setExperiment(doc, kv.field, kv.v); err != nil {
			return Generated{}, err
		}
	}
	if err := applyDatasetMultiplier(doc, dataset); err != nil {
		return Generated{}, err
	}

	out := filepath.Join(root, dataset, "preproc-ablation", fmt.Sprintf("full-%s-%s.yaml", loader, condition))
	return Generated{Path: out, Doc: doc}, nil
}

// Tahoma models below this id take 30x30 inputs resized from 34x34.
const tahomaSmallModels = 4

// Tahoma builds a config for one model of the Tahoma cascade zoo.
func Tahoma(tmpl domain.ConfigDoc, outDir, modelsRoot, dataset, modelID string) (Generated, error) {
	id, err := strconv.Atoi(modelID)
	if err != nil {
		return Generated{}, domain.InvalidConfig("cfggen.tahoma", "", "model id %q is not numeric", modelID)
	}

	doc := tmpl.Clone()
	if id < tahomaSmallModels {
		if err := setModel(doc, "input-dim", dims(30, 30)); err != nil {
			return Generated{}, err
		}
		if err := setModel(doc, "resize-dim", dims(34, 34)); err != nil {
			return Generated{}, err
		}
	}

	onnx := filepath.Join(modelsRoot, dataset, modelID+".bs64.onnx")
	onnxBS1 := filepath.Join(modelsRoot, dataset, modelID+".bs1.onnx")
	engine := strings.ReplaceAll(onnx, ".onnx", "naive-full.engine")

	for _, kv := range []struct {
		field string
		v     any
	}{
		{"onnx-path", onnx},
		{"onnx-path-bs1", onnxBS1},
		{"engine-path", engine},
	} {
		if err := setModel(doc, kv.field, kv.v); err != nil {
			return Generated{}, err
		}
	}
	if _, err := formatField(doc, "data-path", dataset, "full"); err != nil {
		return Generated{}, err
	}
	if err := setModel(doc, "data-loader", "naive"); err != nil {
		return Generated{}, err
	}
	if err := applyDatasetMultiplier(doc, dataset); err != nil {
		return Generated{}, err
	}

	return Generated{Path: filepath.Join(outDir, modelID+".yaml"), Doc: doc}, nil
}
