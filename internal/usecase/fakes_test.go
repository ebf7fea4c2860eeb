package usecase

import (
	"context"
	"os"
	"sync"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ports"
)

// --- fakes shared by the usecase tests ---

type fakeConfigLoader struct {
	docs map[string]domain.ConfigDoc
	refs []domain.ConfigRef
	errs map[string]error
}

func (f *fakeConfigLoader) LoadConfig(path string) (domain.ConfigDoc, error) {
	if err := f.errs[path]; err != nil {
		return nil, err
	}
	doc, ok := f.docs[path]
	if !ok {
		return nil, &domain.OpError{Op: "fake.load", Kind: domain.KindNotFound, Path: path, Err: domain.ErrNotFound}
	}
	return doc.Clone(), nil
}

func (f *fakeConfigLoader) ListConfigs(_ string) ([]domain.ConfigRef, error) {
	return f.refs, nil
}

type memWriter struct {
	mu   sync.Mutex
	docs map[string]domain.ConfigDoc
}

func (w *memWriter) WriteConfig(path string, doc domain.ConfigDoc) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.docs == nil {
		w.docs = map[string]domain.ConfigDoc{}
	}
	w.docs[path] = doc.Clone()
	return nil
}

// step scripts one runner invocation.
type step struct {
	stderr   string
	exitCode int
	timedOut bool
	err      error
	// before runs first; it may write files or cancel a context.
	before func(inv domain.Invocation)
}

type scriptedRunner struct {
	steps []step
	calls []domain.Invocation
}

func (r *scriptedRunner) Run(ctx context.Context, inv domain.Invocation) (domain.ProcessResult, error) {
	idx := len(r.calls)
	r.calls = append(r.calls, inv)
	if err := ctx.Err(); err != nil {
		return domain.ProcessResult{ExitCode: -1}, err
	}

	s := step{}
	if idx < len(r.steps) {
		s = r.steps[idx]
	}
	if s.before != nil {
		s.before(inv)
	}
	if s.err != nil {
		return domain.ProcessResult{ExitCode: -1}, s.err
	}
	if err := os.WriteFile(inv.StderrPath, []byte(s.stderr), 0o644); err != nil {
		return domain.ProcessResult{}, err
	}
	if err := os.WriteFile(inv.StdoutPath, nil, 0o644); err != nil {
		return domain.ProcessResult{}, err
	}
	return domain.ProcessResult{ExitCode: s.exitCode, TimedOut: s.timedOut}, ctx.Err()
}

type fakeStore struct {
	saved []domain.ExperimentResult
	err   error
}

func (s *fakeStore) SaveExperiment(res domain.ExperimentResult) error {
	s.saved = append(s.saved, res)
	return s.err
}

type fakeMetrics struct {
	got   *domain.SweepResult
	calls int
}

func (m *fakeMetrics) WriteSweep(res domain.SweepResult) error {
	m.calls++
	m.got = &res
	return nil
}

type fakeHost struct{}

func (fakeHost) Describe() (domain.HostInfo, error) {
	return domain.HostInfo{Hostname: "bench-1", CPUCores: 8}, nil
}

var (
	_ ports.ConfigLoader  = (*fakeConfigLoader)(nil)
	_ ports.ConfigWriter  = (*memWriter)(nil)
	_ ports.ProcessRunner = (*scriptedRunner)(nil)
	_ ports.ArtifactStore = (*fakeStore)(nil)
	_ ports.MetricsSink   = (*fakeMetrics)(nil)
	_ ports.HostDescriber = fakeHost{}
)
