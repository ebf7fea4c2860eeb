package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ports"
	"github.com/stanford-futuredata/smol/internal/usecase/trial"
	"go.uber.org/zap"
)

// PredsFile is the raw float32 prediction dump the runner leaves in its
// working directory.
const PredsFile = "preds.out"

// ExperimentRequest describes one config to benchmark.
type ExperimentRequest struct {
	Executable string
	ConfigPath string
	OutDir     string
	Mode       domain.ExperimentMode

	Trials       int
	SettleDelay  time.Duration
	TrialTimeout time.Duration
}

// TrialEvent is reported after the setup run and after every trial.
type TrialEvent struct {
	Trial domain.TrialResult
	Total int
}

type RunExperiment struct {
	configs  ports.ConfigLoader
	runner   ports.ProcessRunner
	store    ports.ArtifactStore
	host     ports.HostDescriber
	progress func(TrialEvent)

	log   *zap.Logger
	sleep func(context.Context, time.Duration) error
	newID func() string
	now   func() time.Time
}

type ExperimentOption func(*RunExperiment)

func WithArtifactStore(s ports.ArtifactStore) ExperimentOption {
	return func(uc *RunExperiment) { uc.store = s }
}

func WithHost(h ports.HostDescriber) ExperimentOption {
	return func(uc *RunExperiment) { uc.host = h }
}

func WithLogger(l *zap.Logger) ExperimentOption {
	return func(uc *RunExperiment) {
		if l != nil {
			uc.log = l
		}
	}
}

// WithProgress calls fn on the Execute goroutine as each run finishes.
func WithProgress(fn func(TrialEvent)) ExperimentOption {
	return func(uc *RunExperiment) { uc.progress = fn }
}

// WithSleep replaces the settle wait; tests pass a no-op.
func WithSleep(fn func(context.Context, time.Duration) error) ExperimentOption {
	return func(uc *RunExperiment) { uc.sleep = fn }
}

func WithIDFunc(fn func() string) ExperimentOption {
	return func(uc *RunExperiment) { uc.newID = fn }
}

func NewRunExperiment(cl ports.ConfigLoader, pr ports.ProcessRunner, opts ...ExperimentOption) *RunExperiment {
	uc := &RunExperiment{
		configs: cl,
		runner:  pr,
		log:     zap.NewNop(),
		sleep:   sleepCtx,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *RunExperiment) Execute(ctx context.Context, req ExperimentRequest) (domain.ExperimentResult, error) {
	if err := validateRequest(req); err != nil {
		return domain.ExperimentResult{}, err
	}
	if req.Mode == "" {
		req.Mode = domain.ModeImage
	}

	res := domain.ExperimentResult{
		ID:         uc.newID(),
		Executable: req.Executable,
		ConfigPath: req.ConfigPath,
		OutDir:     req.OutDir,
		Mode:       req.Mode,
		StartedAt:  uc.now(),
		Trials:     make([]domain.TrialResult, 0, req.Trials),
		Times:      []float64{},
	}
	log := uc.log.With(zap.String("id", res.ID), zap.String("config", req.ConfigPath))
	log.Info("experiment.start",
		zap.String("executable", req.Executable),
		zap.String("out_dir", req.OutDir),
		zap.String("mode", string(req.Mode)),
		zap.Int("trials", req.Trials))

	execDir := filepath.Dir(req.Executable)
	if err := clearRunnerCache(execDir); err != nil {
		return res, err
	}
	if err := resetDir(req.OutDir); err != nil {
		return res, err
	}

	doc, err := uc.configs.LoadConfig(req.ConfigPath)
	if err != nil {
		return res, err
	}

	score := false
	var labels []int
	if req.Mode == domain.ModeImage {
		score, err = doc.Bool(domain.ExperimentKey("write-out")...)
		if err != nil {
			return res, err
		}
		if score {
			dataPath, err := doc.String(domain.ModelKey("data-path")...)
			if err != nil {
				return res, err
			}
			labels, err = trial.GroundTruthLabels(dataPath)
			if err != nil {
				return res, err
			}
			log.Debug("experiment.labels", zap.Int("images", len(labels)), zap.Int("classes", trial.NumClasses(labels)))
		}
	}

	if uc.host != nil {
		if hi, err := uc.host.Describe(); err == nil {
			res.Host = &hi
		} else {
			log.Warn("experiment.host_describe_failed", zap.Error(err))
		}
	}

	// The setup run builds the engine and writes predictions.
	setup, err := uc.invoke(ctx, req, -1, "setup")
	res.Setup = setup
	uc.report(setup, req.Trials)
	if err != nil {
		// Nothing will run if the executable cannot even start.
		res.EndedAt = uc.now()
		return res, err
	}
	if setup.ExitCode != 0 || setup.Error != "" {
		log.Warn("experiment.setup_failed",
			zap.Int("exit_code", setup.ExitCode),
			zap.String("error", setup.Error),
			zap.String("stderr", setup.StderrPath))
	}
	if err := uc.sleep(ctx, req.SettleDelay); err != nil {
		res.EndedAt = uc.now()
		return res, err
	}

	predsSrc := filepath.Join(execDir, PredsFile)
	predsDst := filepath.Join(req.OutDir, PredsFile)
	switch {
	case score:
		if err := copyFile(predsSrc, predsDst); err != nil {
			return res, err
		}
		acc, err := trial.Accuracy(labels, predsDst)
		if err != nil {
			return res, err
		}
		res.Accuracy = &acc
		log.Info("experiment.accuracy", zap.Float64("accuracy", acc))
	case req.Mode == domain.ModeImage:
		zero := 0.0
		res.Accuracy = &zero
	default:
		if err := copyFile(predsSrc, predsDst); err != nil {
			log.Warn("experiment.preds_missing", zap.Error(err))
		}
	}

	for i := 0; i < req.Trials; i++ {
		if err := ctx.Err(); err != nil {
			res.EndedAt = uc.now()
			return res, err
		}

		tr, err := uc.invoke(ctx, req, i, strconv.Itoa(i))
		if err != nil && ctx.Err() != nil {
			res.Trials = append(res.Trials, tr)
			res.EndedAt = uc.now()
			return res, ctx.Err()
		}

		switch {
		case tr.Error != "":
			log.Warn("trial.error", zap.Int("trial", i), zap.String("error", tr.Error))
		case tr.ExitCode != 0:
			log.Warn("trial.failed", zap.Int("trial", i), zap.Int("exit_code", tr.ExitCode))
		default:
			rt, perr := trial.ParseRuntimesFile(tr.StderrPath)
			if perr != nil {
				tr.Error = perr.Error()
				log.Warn("trial.unreadable", zap.Int("trial", i), zap.Error(perr))
				break
			}
			tr.Seconds = rt.Total()
			tr.RuntimeLines = len(rt.Values)
			tr.MalformedLines = rt.Malformed
			tr.Measured = true
			res.Times = append(res.Times, tr.Seconds)
			if rt.Malformed > 0 {
				log.Warn("trial.malformed_runtime_lines", zap.Int("trial", i), zap.Int("lines", rt.Malformed))
			}
			log.Info("trial.done", zap.Int("trial", i), zap.Float64("seconds", tr.Seconds))
		}
		res.Trials = append(res.Trials, tr)
		uc.report(tr, req.Trials)
	}

	res.EndedAt = uc.now()
	log.Info("experiment.done",
		zap.Int("measured", len(res.Times)),
		zap.Int("failed", res.FailedTrials()),
		zap.Duration("elapsed", res.EndedAt.Sub(res.StartedAt)))

	if uc.store != nil {
		if err := uc.store.SaveExperiment(res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (uc *RunExperiment) report(tr domain.TrialResult, total int) {
	if uc.progress != nil {
		uc.progress(TrialEvent{Trial: tr, Total: total})
	}
}

// invoke runs the executable once with output captured as <name>.stdout/.stderr.
// A returned error means the process never ran to completion: the context
// was cancelled or the executable could not be started. Exit codes and
// timeouts are reported in the TrialResult only.
func (uc *RunExperiment) invoke(ctx context.Context, req ExperimentRequest, index int, name string) (domain.TrialResult, error) {
	tr := domain.TrialResult{
		Index:      index,
		StdoutPath: filepath.Join(req.OutDir, name+".stdout"),
		StderrPath: filepath.Join(req.OutDir, name+".stderr"),
	}

	pr, err := uc.runner.Run(ctx, domain.Invocation{
		Executable: req.Executable,
		ConfigPath: req.ConfigPath,
		StdoutPath: tr.StdoutPath,
		StderrPath: tr.StderrPath,
		Timeout:    req.TrialTimeout,
	})
	tr.ExitCode = pr.ExitCode
	tr.WallSeconds = pr.Duration.Seconds()
	tr.PeakRSSBytes = pr.PeakRSSBytes
	if pr.TimedOut {
		tr.Error = fmt.Sprintf("timed out after %s", req.TrialTimeout)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return tr, ctxErr
		}
		tr.ExitCode = -1
		tr.Error = err.Error()
		return tr, err
	}
	return tr, nil
}

func validateRequest(req ExperimentRequest) error {
	switch {
	case strings.TrimSpace(req.Executable) == "":
		return missingArg("executable")
	case strings.TrimSpace(req.ConfigPath) == "":
		return missingArg("config")
	case strings.TrimSpace(req.OutDir) == "":
		return missingArg("out dir")
	case req.Trials < 0:
		return domain.InvalidConfig("experiment.validate", "", "trials must be >= 0, got %d", req.Trials)
	}
	switch req.Mode {
	case "", domain.ModeImage, domain.ModeVideo:
		return nil
	}
	return domain.InvalidConfig("experiment.validate", "", "unknown mode %q (expected image|video)", string(req.Mode))
}

func missingArg(name string) error {
	return &domain.OpError{
		Op:   "experiment.validate",
		Kind: domain.KindMissingArg,
		Err:  fmt.Errorf("%s is required: %w", name, domain.ErrMissingArg),
	}
}

// clearRunnerCache removes serialized engines (*batch*) and stale predictions
// so the setup run rebuilds both.
func clearRunnerCache(execDir string) error {
	matches, err := filepath.Glob(filepath.Join(execDir, "*batch*"))
	if err != nil {
		return domain.InvalidConfig("experiment.clear_cache", execDir, "%s", err.Error())
	}
	matches = append(matches, filepath.Join(execDir, PredsFile))

	for _, p := range matches {
		info, err := os.Lstat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if err := os.Remove(p); err != nil {
			return &domain.OpError{
				Op:   "experiment.clear_cache",
				Kind: domain.KindExecution,
				Path: p,
				Err:  err,
			}
		}
	}
	return nil
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return &domain.OpError{
			Op:   "experiment.reset_out",
			Kind: domain.KindExecution,
			Path: dir,
			Err:  err,
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.OpError{
			Op:   "experiment.reset_out",
			Kind: domain.KindExecution,
			Path: dir,
			Err:  err,
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		kind := domain.KindExecution
		if errors.Is(err, os.ErrNotExist) {
			kind = domain.KindNotFound
		}
		return &domain.OpError{Op: "experiment.copy_preds", Kind: kind, Path: src, Err: err}
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return &domain.OpError{Op: "experiment.copy_preds", Kind: domain.KindExecution, Path: dst, Err: err}
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &domain.OpError{Op: "experiment.copy_preds", Kind: domain.KindExecution, Path: dst, Err: err}
	}
	return out.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
