package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ports"
	"github.com/stanford-futuredata/smol/internal/usecase/trial"
	"go.uber.org/zap"
)

// ThroughputRequest sweeps batch sizes 2^MinExp..2^MaxExp.
type ThroughputRequest struct {
	Executable string
	ConfigPath string
	OutDir     string

	MinExp int
	MaxExp int
	Warmup int
	Trials int

	Cooldown     time.Duration
	TrialTimeout time.Duration
}

// DefaultThroughputRequest mirrors the batch-size sweep used for the
// throughput tables: 32..512, ten warmup runs, twenty timed runs, 10s
// between sizes.
func DefaultThroughputRequest() ThroughputRequest {
	return ThroughputRequest{
		MinExp:   5,
		MaxExp:   9,
		Warmup:   10,
		Trials:   20,
		Cooldown: 10 * time.Second,
	}
}

type Throughput struct {
	configs ports.ConfigLoader
	writer  ports.ConfigWriter
	runner  ports.ProcessRunner
	store   ports.ThroughputStore

	log   *zap.Logger
	sleep func(context.Context, time.Duration) error
}

type ThroughputOption func(*Throughput)

func WithThroughputStore(s ports.ThroughputStore) ThroughputOption {
	return func(uc *Throughput) { uc.store = s }
}

func WithThroughputLogger(l *zap.Logger) ThroughputOption {
	return func(uc *Throughput) {
		if l != nil {
			uc.log = l
		}
	}
}

func WithThroughputSleep(fn func(context.Context, time.Duration) error) ThroughputOption {
	return func(uc *Throughput) { uc.sleep = fn }
}

func NewThroughput(cl ports.ConfigLoader, cw ports.ConfigWriter, pr ports.ProcessRunner, opts ...ThroughputOption) *Throughput {
	uc := &Throughput{
		configs: cl,
		writer:  cw,
		runner:  pr,
		log:     zap.NewNop(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *Throughput) Execute(ctx context.Context, req ThroughputRequest) (domain.ThroughputResult, error) {
	res := domain.ThroughputResult{ConfigPath: req.ConfigPath}
	switch {
	case req.Executable == "":
		return res, missingArg("executable")
	case req.ConfigPath == "":
		return res, missingArg("config")
	case req.OutDir == "":
		return res, missingArg("out dir")
	case req.MinExp < 0 || req.MaxExp < req.MinExp || req.MaxExp > 16:
		return res, domain.InvalidConfig("throughput.validate", "", "batch exponents must satisfy 0 <= min <= max <= 16, got %d..%d", req.MinExp, req.MaxExp)
	case req.Trials <= 0:
		return res, domain.InvalidConfig("throughput.validate", "", "trials must be positive, got %d", req.Trials)
	case req.Warmup < 0:
		return res, domain.InvalidConfig("throughput.validate", "", "warmup must be >= 0, got %d", req.Warmup)
	}

	base, err := uc.configs.LoadConfig(req.ConfigPath)
	if err != nil {
		return res, err
	}
	if err := resetDir(req.OutDir); err != nil {
		return res, err
	}

	for exp := req.MinExp; exp <= req.MaxExp; exp++ {
		bs := 1 << exp
		if exp > req.MinExp {
			if err := uc.sleep(ctx, req.Cooldown); err != nil {
				return res, err
			}
		}

		sample, ok, err := uc.measure(ctx, req, base, bs)
		if err != nil {
			return res, err
		}
		if !ok {
			// Usually out of memory; larger batches will not fit either.
			res.StoppedAt = bs
			uc.log.Warn("throughput.stopped", zap.Int("batch_size", bs))
			break
		}

		res.Samples = append(res.Samples, sample)
		uc.log.Info("throughput.sample",
			zap.Int("batch_size", bs),
			zap.Float64("seconds", sample.Seconds),
			zap.Float64("images_per_sec", sample.ImagesPerSec))
		if sample.ImagesPerSec > res.Best {
			res.Best = sample.ImagesPerSec
			res.BestBatch = bs
		}
	}

	if uc.store != nil {
		if err := uc.store.SaveThroughput(req.OutDir, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// measure returns ok=false when any run at this batch size fails.
func (uc *Throughput) measure(ctx context.Context, req ThroughputRequest, base domain.ConfigDoc, bs int) (domain.ThroughputSample, bool, error) {
	dir := filepath.Join(req.OutDir, fmt.Sprintf("bs%d", bs))
	cfgPath := filepath.Join(dir, "config.yaml")

	doc := base.Clone()
	if err := doc.Set(bs, domain.ModelKey("batch-size")...); err != nil {
		return domain.ThroughputSample{}, false, err
	}
	if err := doc.Set("infer-only", "experiment-type"); err != nil {
		return domain.ThroughputSample{}, false, err
	}
	if err := uc.writer.WriteConfig(cfgPath, doc); err != nil {
		return domain.ThroughputSample{}, false, err
	}

	run := func(name string) (domain.ProcessResult, string, error) {
		stderr := filepath.Join(dir, name+".stderr")
		pr, err := uc.runner.Run(ctx, domain.Invocation{
			Executable: req.Executable,
			ConfigPath: cfgPath,
			StdoutPath: filepath.Join(dir, name+".stdout"),
			StderrPath: stderr,
			Timeout:    req.TrialTimeout,
		})
		return pr, stderr, err
	}

	for i := 0; i < req.Warmup; i++ {
		pr, _, err := run(fmt.Sprintf("warmup-%d", i))
		if err != nil {
			if ctx.Err() != nil {
				return domain.ThroughputSample{}, false, ctx.Err()
			}
			return domain.ThroughputSample{}, false, err
		}
		if pr.ExitCode != 0 || pr.TimedOut {
			return domain.ThroughputSample{}, false, nil
		}
	}

	var total float64
	for i := 0; i < req.Trials; i++ {
		pr, stderr, err := run(fmt.Sprintf("%d", i))
		if err != nil {
			if ctx.Err() != nil {
				return domain.ThroughputSample{}, false, ctx.Err()
			}
			return domain.ThroughputSample{}, false, err
		}
		if pr.ExitCode != 0 || pr.TimedOut {
			uc.log.Warn("throughput.trial_failed",
				zap.Int("batch_size", bs),
				zap.Int("trial", i),
				zap.Int("exit_code", pr.ExitCode),
				zap.Bool("timed_out", pr.TimedOut),
				zap.String("stderr", stderr))
			return domain.ThroughputSample{}, false, nil
		}

		rt, err := trial.ParseRuntimesFile(stderr)
		if err != nil {
			return domain.ThroughputSample{}, false, err
		}
		if len(rt.Values) == 0 {
			// Runners without runtime lines are timed from the outside.
			total += pr.Duration.Seconds()
			continue
		}
		total += rt.Total()
	}

	sample := domain.ThroughputSample{BatchSize: bs, Seconds: total}
	if total > 0 {
		sample.ImagesPerSec = float64(bs*req.Trials) / total
	}
	return sample, true, nil
}
