package usecase

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/infra/runstore"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

type experimentFixture struct {
	execDir string
	exe     string
	dataDir string
	outDir  string
	cfgPath string
}

func newFixture(t *testing.T) experimentFixture {
	t.Helper()
	root := t.TempDir()
	f := experimentFixture{
		execDir: filepath.Join(root, "build"),
		dataDir: filepath.Join(root, "data"),
		outDir:  filepath.Join(root, "out", "a"),
		cfgPath: filepath.Join(root, "cfgs", "a.yaml"),
	}
	f.exe = filepath.Join(f.execDir, "runner")
	require.NoError(t, os.MkdirAll(f.execDir, 0o755))

	// two images of class "cat", one of "dog"
	for _, p := range []string{"cat/1.jpg", "cat/2.jpg", "dog/1.jpg"} {
		full := filepath.Join(f.dataDir, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o644))
	}
	return f
}

func (f experimentFixture) loader(writeOut bool) *fakeConfigLoader {
	return &fakeConfigLoader{docs: map[string]domain.ConfigDoc{
		f.cfgPath: {
			"model-config": map[string]any{
				"model-single": map[string]any{"data-path": f.dataDir},
			},
			"experiment-config": map[string]any{"write-out": writeOut},
		},
	}}
}

func (f experimentFixture) request(mode domain.ExperimentMode, trials int) ExperimentRequest {
	return ExperimentRequest{
		Executable: f.exe,
		ConfigPath: f.cfgPath,
		OutDir:     f.outDir,
		Mode:       mode,
		Trials:     trials,
	}
}

func writePredsTo(t *testing.T, path string, vals ...float32) {
	t.Helper()
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func TestRunExperiment_ImageWithAccuracy(t *testing.T) {
	f := newFixture(t)
	stale := filepath.Join(f.execDir, "model.batch64.engine")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.execDir, PredsFile), []byte("old"), 0o644))
	require.NoError(t, os.MkdirAll(f.outDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.outDir, "leftover"), nil, 0o644))

	runner := &scriptedRunner{steps: []step{
		{before: func(domain.Invocation) {
			_, err := os.Stat(stale)
			require.True(t, os.IsNotExist(err), "engine cache should be cleared before setup")
			// rows: cat, dog, dog -> 2 of 3 correct
			writePredsTo(t, filepath.Join(f.execDir, PredsFile), 0.9, 0.1, 0.2, 0.8, 0.3, 0.7)
		}},
		{stderr: "Runtime: 0.5\nRuntime: 0.25\n"},
		{exitCode: 1},
		{stderr: "warmup\nRuntime: 1\n"},
	}}
	store := &fakeStore{}

	uc := NewRunExperiment(f.loader(true), runner,
		WithArtifactStore(store),
		WithHost(fakeHost{}),
		WithSleep(noSleep),
		WithIDFunc(func() string { return "exp-1" }),
	)
	res, err := uc.Execute(context.Background(), f.request(domain.ModeImage, 3))
	require.NoError(t, err)

	require.Equal(t, "exp-1", res.ID)
	require.NotNil(t, res.Accuracy)
	require.InDelta(t, 200.0/3.0, *res.Accuracy, 1e-9)
	require.Equal(t, []float64{0.75, 1}, res.Times)
	require.Len(t, res.Trials, 3)
	require.Equal(t, 1, res.FailedTrials())
	require.Equal(t, -1, res.Setup.Index)
	require.Equal(t, "bench-1", res.Host.Hostname)

	require.Len(t, runner.calls, 4)
	require.Equal(t, filepath.Join(f.outDir, "setup.stderr"), runner.calls[0].StderrPath)
	require.Equal(t, filepath.Join(f.outDir, "2.stdout"), runner.calls[3].StdoutPath)

	_, err = os.Stat(filepath.Join(f.outDir, PredsFile))
	require.NoError(t, err, "predictions should be copied to the out dir")
	_, err = os.Stat(filepath.Join(f.outDir, "leftover"))
	require.True(t, os.IsNotExist(err), "out dir should be recreated")

	require.Len(t, store.saved, 1)
	require.Equal(t, res.ID, store.saved[0].ID)
}

func TestRunExperiment_ImageWithoutWriteOutScoresZero(t *testing.T) {
	f := newFixture(t)
	runner := &scriptedRunner{steps: []step{{}, {stderr: "Runtime: 2\n"}}}

	uc := NewRunExperiment(f.loader(false), runner, WithSleep(noSleep))
	res, err := uc.Execute(context.Background(), f.request(domain.ModeImage, 1))
	require.NoError(t, err)

	require.NotNil(t, res.Accuracy)
	require.Equal(t, 0.0, *res.Accuracy)
	require.Equal(t, []float64{2}, res.Times)
}

func TestRunExperiment_ImageMissingPredsIsAnError(t *testing.T) {
	f := newFixture(t)
	runner := &scriptedRunner{steps: []step{{exitCode: 134}}}

	uc := NewRunExperiment(f.loader(true), runner, WithSleep(noSleep))
	_, err := uc.Execute(context.Background(), f.request(domain.ModeImage, 2))
	require.True(t, domain.IsKind(err, domain.KindNotFound), "err=%v", err)
	require.Len(t, runner.calls, 1)
}

func TestRunExperiment_VideoKeepsPredsWithoutScoring(t *testing.T) {
	f := newFixture(t)
	runner := &scriptedRunner{steps: []step{
		{before: func(domain.Invocation) {
			writePredsTo(t, filepath.Join(f.execDir, PredsFile), 1, 2)
		}},
		{stderr: "no runtime lines here\n"},
	}}

	uc := NewRunExperiment(&fakeConfigLoader{docs: map[string]domain.ConfigDoc{f.cfgPath: {}}}, runner, WithSleep(noSleep))
	res, err := uc.Execute(context.Background(), f.request(domain.ModeVideo, 1))
	require.NoError(t, err)

	require.Nil(t, res.Accuracy)
	require.Equal(t, []float64{0}, res.Times, "a trial without runtime lines counts as zero seconds")
	_, err = os.Stat(filepath.Join(f.outDir, PredsFile))
	require.NoError(t, err)
}

func TestRunExperiment_NaNRuntimeStillSavesArtifacts(t *testing.T) {
	f := newFixture(t)
	indexDir := filepath.Dir(f.outDir)
	runner := &scriptedRunner{steps: []step{
		{},
		{stderr: "Runtime: 1\n"},
		{stderr: "Runtime: nan\n"},
	}}

	uc := NewRunExperiment(&fakeConfigLoader{docs: map[string]domain.ConfigDoc{f.cfgPath: {}}}, runner,
		WithSleep(noSleep),
		WithArtifactStore(runstore.New(runstore.WithIndex(indexDir))),
	)
	res, err := uc.Execute(context.Background(), f.request(domain.ModeVideo, 2))
	require.NoError(t, err)
	require.Equal(t, []float64{1, 0}, res.Times)

	_, err = os.Stat(filepath.Join(f.outDir, "run.json"))
	require.NoError(t, err)
	entries, err := runstore.ReadIndex(indexDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRunExperiment_ZeroTrialsWritesAccuracyOnly(t *testing.T) {
	f := newFixture(t)
	runner := &scriptedRunner{steps: []step{{}}}

	uc := NewRunExperiment(f.loader(false), runner,
		WithSleep(noSleep),
		WithArtifactStore(runstore.New()),
	)
	res, err := uc.Execute(context.Background(), f.request(domain.ModeImage, 0))
	require.NoError(t, err)

	require.Len(t, runner.calls, 1, "only the setup run")
	require.Empty(t, res.Times)
	b, err := os.ReadFile(filepath.Join(f.outDir, runstore.DataFile))
	require.NoError(t, err)
	require.Equal(t, "acc\n0.0\n", string(b))
}

func TestRunExperiment_ReportsProgress(t *testing.T) {
	f := newFixture(t)
	runner := &scriptedRunner{steps: []step{{}, {stderr: "Runtime: 1\n"}, {exitCode: 2}}}

	var events []TrialEvent
	uc := NewRunExperiment(&fakeConfigLoader{docs: map[string]domain.ConfigDoc{f.cfgPath: {}}}, runner,
		WithSleep(noSleep),
		WithProgress(func(ev TrialEvent) { events = append(events, ev) }),
	)
	_, err := uc.Execute(context.Background(), f.request(domain.ModeVideo, 2))
	require.NoError(t, err)

	require.Len(t, events, 3)
	require.Equal(t, -1, events[0].Trial.Index)
	require.True(t, events[1].Trial.Measured)
	require.Equal(t, 2, events[2].Trial.ExitCode)
	require.Equal(t, 2, events[2].Total)
}

func TestRunExperiment_VideoMissingPredsIsTolerated(t *testing.T) {
	f := newFixture(t)
	runner := &scriptedRunner{steps: []step{{}, {stderr: "Runtime: 1\n"}}}

	uc := NewRunExperiment(&fakeConfigLoader{docs: map[string]domain.ConfigDoc{f.cfgPath: {}}}, runner, WithSleep(noSleep))
	res, err := uc.Execute(context.Background(), f.request(domain.ModeVideo, 1))
	require.NoError(t, err)
	require.Equal(t, []float64{1}, res.Times)
}

func TestRunExperiment_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &scriptedRunner{steps: []step{{before: func(domain.Invocation) { cancel() }}}}
	store := &fakeStore{}

	uc := NewRunExperiment(f.loader(false), runner, WithArtifactStore(store), WithSleep(noSleep))
	res, err := uc.Execute(ctx, f.request(domain.ModeImage, 5))

	require.True(t, errors.Is(err, context.Canceled), "err=%v", err)
	require.Len(t, runner.calls, 1)
	require.Empty(t, res.Trials)
	require.False(t, res.EndedAt.IsZero())
	require.Empty(t, store.saved)
}

func TestRunExperiment_SetupStartFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	startErr := &domain.OpError{Op: "procrunner.start", Kind: domain.KindExecution, Err: domain.ErrExecution}
	runner := &scriptedRunner{steps: []step{{err: startErr}}}

	uc := NewRunExperiment(f.loader(false), runner, WithSleep(noSleep))
	res, err := uc.Execute(context.Background(), f.request(domain.ModeImage, 3))

	require.True(t, domain.IsKind(err, domain.KindExecution), "err=%v", err)
	require.Equal(t, -1, res.Setup.ExitCode)
	require.Len(t, runner.calls, 1)
}

func TestRunExperiment_TrialTimeoutIsRecorded(t *testing.T) {
	f := newFixture(t)
	runner := &scriptedRunner{steps: []step{{}, {timedOut: true, exitCode: -1}, {stderr: "Runtime: 1\n"}}}

	uc := NewRunExperiment(f.loader(false), runner, WithSleep(noSleep))
	req := f.request(domain.ModeImage, 2)
	req.TrialTimeout = time.Minute
	res, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, []float64{1}, res.Times)
	require.Contains(t, res.Trials[0].Error, "timed out")
	require.Equal(t, time.Minute, runner.calls[1].Timeout)
}

func TestRunExperiment_Validation(t *testing.T) {
	uc := NewRunExperiment(&fakeConfigLoader{}, &scriptedRunner{})

	_, err := uc.Execute(context.Background(), ExperimentRequest{ConfigPath: "a", OutDir: "b"})
	require.True(t, domain.IsKind(err, domain.KindMissingArg))

	_, err = uc.Execute(context.Background(), ExperimentRequest{Executable: "x", ConfigPath: "a", OutDir: "b", Mode: "audio"})
	require.True(t, domain.IsKind(err, domain.KindInvalidConfig))

	_, err = uc.Execute(context.Background(), ExperimentRequest{Executable: "x", ConfigPath: "a", OutDir: "b", Trials: -1})
	require.True(t, domain.IsKind(err, domain.KindInvalidConfig))
}
