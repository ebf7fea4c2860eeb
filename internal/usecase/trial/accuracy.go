package trial

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/stanford-futuredata/smol/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// GroundTruthLabels assigns every entry of each class directory under
// dataPath the index of that class in sorted order. Plain files directly
// under dataPath are not classes and are skipped.
func GroundTruthLabels(dataPath string) ([]int, error) {
	entries, err := os.ReadDir(dataPath)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "trial.labels",
			Kind: domain.KindNotFound,
			Path: dataPath,
			Err:  err,
		}
	}

	var classes []string
	for _, e := range entries {
		if e.IsDir() {
			classes = append(classes, e.Name())
		}
	}
	sort.Strings(classes)

	var labels []int
	for idx, cls := range classes {
		dir := filepath.Join(dataPath, cls)
		items, err := os.ReadDir(dir)
		if err != nil {
			return nil, &domain.OpError{
				Op:   "trial.labels",
				Kind: domain.KindExecution,
				Path: dir,
				Err:  err,
			}
		}
		for range items {
			labels = append(labels, idx)
		}
	}
	return labels, nil
}

// NumClasses is the number of distinct labels.
func NumClasses(labels []int) int {
	seen := map[int]struct{}{}
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

// ReadPredictions decodes a raw little-endian float32 dump.
func ReadPredictions(path string) ([]float32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "trial.read_preds",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}
	if len(b)%4 != 0 {
		return nil, domain.InvalidConfig("trial.read_preds", path, "size %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// Accuracy scores the prediction dump at predsPath against labels and
// returns the percentage of rows whose argmax equals the label.
func Accuracy(labels []int, predsPath string) (float64, error) {
	probs, err := ReadPredictions(predsPath)
	if err != nil {
		return 0, err
	}
	acc, err := Score(labels, probs)
	if err != nil {
		if oe, ok := err.(*domain.OpError); ok {
			oe.Path = predsPath
		}
		return 0, err
	}
	return acc, nil
}

// Score treats probs as rows of NumClasses(labels) scores. Only the first
// len(labels) rows are compared; ties go to the lowest class index.
func Score(labels []int, probs []float32) (float64, error) {
	if len(labels) == 0 {
		return 0, domain.InvalidConfig("trial.accuracy", "", "no ground-truth labels")
	}
	nb := NumClasses(labels)
	if len(probs)%nb != 0 {
		return 0, domain.InvalidConfig("trial.accuracy", "", "%d scores do not split into rows of %d classes", len(probs), nb)
	}
	rows := len(probs) / nb
	if rows < len(labels) {
		return 0, domain.InvalidConfig("trial.accuracy", "", "%d prediction rows for %d labels", rows, len(labels))
	}

	row := make([]float64, nb)
	correct := 0
	for i, want := range labels {
		for j := 0; j < nb; j++ {
			row[j] = float64(probs[i*nb+j])
		}
		if floats.MaxIdx(row) == want {
			correct++
		}
	}
	return float64(correct) / float64(len(labels)) * 100, nil
}
