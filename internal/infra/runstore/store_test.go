package runstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stanford-futuredata/smol/internal/domain"
)

func sampleResult(outDir string) domain.ExperimentResult {
	acc := 91.25
	start := time.Date(2026, 2, 3, 10, 11, 12, 0, time.UTC)
	return domain.ExperimentResult{
		ID:         "run-1",
		Executable: "/trt/build/runner",
		ConfigPath: "/cfgs/bike-bird/full/a.yaml",
		OutDir:     outDir,
		Mode:       domain.ModeImage,
		Accuracy:   &acc,
		Trials: []domain.TrialResult{
			{Index: 0, Measured: true, Seconds: 1},
			{Index: 1, ExitCode: 2},
			{Index: 2, Measured: true, Seconds: 0.5},
		},
		Times:     []float64{1, 0.5},
		StartedAt: start,
		EndedAt:   start.Add(3 * time.Second),
	}
}

func TestSaveExperiment_WritesCSVAndRunJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bike-bird", "full", "a")
	res := sampleResult(out)

	if err := New().SaveExperiment(res); err != nil {
		t.Fatalf("SaveExperiment error: %v", err)
	}

	csv, err := os.ReadFile(filepath.Join(out, DataFile))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if string(csv) != "acc,0,1\n91.25,1.0,0.5\n" {
		t.Fatalf("unexpected csv %q", csv)
	}

	b, err := os.ReadFile(filepath.Join(out, RunFile))
	if err != nil {
		t.Fatalf("read run.json: %v", err)
	}
	var decoded domain.ExperimentResult
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID != "run-1" || len(decoded.Trials) != 3 || *decoded.Accuracy != 91.25 {
		t.Fatalf("unexpected artifact %+v", decoded)
	}

	if _, err := os.Stat(filepath.Join(out, DataFile+".tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected tmp file to be renamed away")
	}
}

func TestSaveExperiment_VideoHasNoAccColumn(t *testing.T) {
	out := t.TempDir()
	res := sampleResult(out)
	res.Mode = domain.ModeVideo
	res.Accuracy = nil

	if err := New().SaveExperiment(res); err != nil {
		t.Fatalf("SaveExperiment error: %v", err)
	}
	csv, _ := os.ReadFile(filepath.Join(out, DataFile))
	if string(csv) != "0,1\n1.0,0.5\n" {
		t.Fatalf("unexpected csv %q", csv)
	}
}

func TestSaveExperiment_AppendsIndex(t *testing.T) {
	base := t.TempDir()
	store := New(WithIndex(base))

	for _, name := range []string{"a", "b"} {
		res := sampleResult(filepath.Join(base, name))
		res.ID = name
		if err := store.SaveExperiment(res); err != nil {
			t.Fatalf("SaveExperiment error: %v", err)
		}
	}

	entries, err := ReadIndex(base)
	if err != nil {
		t.Fatalf("ReadIndex error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	e := entries[1]
	if e.ID != "b" || e.Measured != 2 || e.Failed != 1 || e.MeanSecs != 0.75 {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestSaveExperiment_RequiresOutDir(t *testing.T) {
	err := New().SaveExperiment(domain.ExperimentResult{})
	if !domain.IsKind(err, domain.KindInvalidConfig) {
		t.Fatalf("expected invalid_config, got %v", err)
	}
}

func TestReadIndex_Missing(t *testing.T) {
	entries, err := ReadIndex(t.TempDir())
	if err != nil || entries != nil {
		t.Fatalf("expected empty index, got %v (err=%v)", entries, err)
	}
}

func TestSaveThroughput(t *testing.T) {
	dir := t.TempDir()
	res := domain.ThroughputResult{
		ConfigPath: "cfg.yaml",
		Samples: []domain.ThroughputSample{
			{BatchSize: 32, Seconds: 2, ImagesPerSec: 160},
			{BatchSize: 64, Seconds: 2.5, ImagesPerSec: 256},
		},
		Best:      256,
		BestBatch: 64,
		StoppedAt: 128,
	}
	if err := New().SaveThroughput(dir, res); err != nil {
		t.Fatalf("SaveThroughput error: %v", err)
	}

	csv, err := os.ReadFile(filepath.Join(dir, ThroughputCSV))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	want := "batch_size,seconds,images_per_sec\n32,2.0,160.0\n64,2.5,256.0\n"
	if string(csv) != want {
		t.Fatalf("unexpected csv %q", csv)
	}

	b, err := os.ReadFile(filepath.Join(dir, ThroughputJSON))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded domain.ThroughputResult
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.BestBatch != 64 || decoded.StoppedAt != 128 {
		t.Fatalf("unexpected result %+v", decoded)
	}
}
