package usecase

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ports"
	"go.uber.org/zap"
)

// SweepRequest runs every config under CfgDir with shared runner settings.
type SweepRequest struct {
	Executable string
	Dataset    string
	CfgDir     string
	OutBase    string
	Mode       domain.ExperimentMode

	Trials       int
	SettleDelay  time.Duration
	TrialTimeout time.Duration
}

type RunSweep struct {
	configs    ports.ConfigLoader
	experiment *RunExperiment
	metrics    ports.MetricsSink
	log        *zap.Logger
	now        func() time.Time
}

type SweepOption func(*RunSweep)

func WithMetricsSink(m ports.MetricsSink) SweepOption {
	return func(uc *RunSweep) { uc.metrics = m }
}

func WithSweepLogger(l *zap.Logger) SweepOption {
	return func(uc *RunSweep) {
		if l != nil {
			uc.log = l
		}
	}
}

func NewRunSweep(cl ports.ConfigLoader, exp *RunExperiment, opts ...SweepOption) *RunSweep {
	uc := &RunSweep{
		configs:    cl,
		experiment: exp,
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// OutDirFor maps a config to <outBase>/<dataset>/<relative dir>/<name>.
func OutDirFor(outBase, dataset string, ref domain.ConfigRef) string {
	return filepath.Join(outBase, dataset, filepath.Dir(ref.Rel), ref.Name)
}

// Execute runs the configs in lexical order. A failing experiment is recorded
// in SweepResult.Failed and the sweep moves on; only cancellation and an
// unreadable config directory abort it.
func (uc *RunSweep) Execute(ctx context.Context, req SweepRequest) (domain.SweepResult, error) {
	res := domain.SweepResult{
		ID:        uuid.NewString(),
		Dataset:   req.Dataset,
		CfgDir:    req.CfgDir,
		OutBase:   req.OutBase,
		StartedAt: uc.now(),
	}
	if req.Dataset == "" {
		return res, missingArg("dataset")
	}

	refs, err := uc.configs.ListConfigs(req.CfgDir)
	if err != nil {
		return res, err
	}
	uc.log.Info("sweep.start",
		zap.String("id", res.ID),
		zap.String("dataset", req.Dataset),
		zap.String("cfg_dir", req.CfgDir),
		zap.Int("configs", len(refs)))

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			res.EndedAt = uc.now()
			return res, err
		}

		out := OutDirFor(req.OutBase, req.Dataset, ref)
		uc.log.Info("sweep.experiment",
			zap.Int("index", i+1),
			zap.Int("total", len(refs)),
			zap.String("config", ref.Rel),
			zap.String("out_dir", out))

		er, err := uc.experiment.Execute(ctx, ExperimentRequest{
			Executable:   req.Executable,
			ConfigPath:   ref.Path,
			OutDir:       out,
			Mode:         req.Mode,
			Trials:       req.Trials,
			SettleDelay:  req.SettleDelay,
			TrialTimeout: req.TrialTimeout,
		})
		if err != nil {
			if ctx.Err() != nil {
				res.EndedAt = uc.now()
				return res, ctx.Err()
			}
			uc.log.Error("sweep.experiment_failed", zap.String("config", ref.Path), zap.Error(err))
			res.Failed = append(res.Failed, domain.SweepFailure{ConfigPath: ref.Path, Error: err.Error()})
			continue
		}
		res.Results = append(res.Results, er)
	}

	res.EndedAt = uc.now()
	uc.log.Info("sweep.done",
		zap.Int("ok", len(res.Results)),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("elapsed", res.EndedAt.Sub(res.StartedAt)))

	if uc.metrics != nil {
		if err := uc.metrics.WriteSweep(res); err != nil {
			return res, err
		}
	}
	return res, nil
}
