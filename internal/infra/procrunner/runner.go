package procrunner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ports"
)

const (
	defaultWaitDelay = 5 * time.Second
	// DefaultSampleInterval is the RSS polling period used by the CLI.
	DefaultSampleInterval = 200 * time.Millisecond
)

// Runner starts `<executable> <config>` with its output captured to files.
type Runner struct {
	waitDelay      time.Duration
	env            []string
	sampleInterval time.Duration
	now            func() time.Time
}

type Option func(*Runner)

// WithWaitDelay bounds how long Run waits for output pipes after a kill.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) { r.waitDelay = d }
}

// WithEnv appends KEY=VALUE pairs to the child environment.
func WithEnv(kv ...string) Option {
	return func(r *Runner) { r.env = append(r.env, kv...) }
}

// WithMemorySampling polls the child's resident set size every interval and
// reports the peak in ProcessResult. Zero disables sampling.
func WithMemorySampling(interval time.Duration) Option {
	return func(r *Runner) { r.sampleInterval = interval }
}

func New(opts ...Option) *Runner {
	r := &Runner{
		waitDelay: defaultWaitDelay,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.ProcessRunner = (*Runner)(nil)

func (r *Runner) Run(ctx context.Context, inv domain.Invocation) (domain.ProcessResult, error) {
	exe, err := filepath.Abs(inv.Executable)
	if err != nil {
		return domain.ProcessResult{}, opErr("procrunner.abs", inv.Executable, err)
	}
	cfg, err := filepath.Abs(inv.ConfigPath)
	if err != nil {
		return domain.ProcessResult{}, opErr("procrunner.abs", inv.ConfigPath, err)
	}
	dir := inv.Dir
	if dir == "" {
		dir = filepath.Dir(exe)
	}

	stdout, err := create(inv.StdoutPath)
	if err != nil {
		return domain.ProcessResult{}, err
	}
	defer stdout.Close()
	stderr, err := create(inv.StderrPath)
	if err != nil {
		return domain.ProcessResult{}, err
	}
	defer stderr.Close()

	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, exe, cfg)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.waitDelay
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	start := r.now()
	if err := cmd.Start(); err != nil {
		return domain.ProcessResult{}, startErr(exe, err)
	}

	var peak *peakSampler
	if r.sampleInterval > 0 {
		peak = startSampler(cmd.Process.Pid, r.sampleInterval)
	}
	runErr := cmd.Wait()
	res := domain.ProcessResult{Duration: r.now().Sub(start)}
	if peak != nil {
		res.PeakRSSBytes = peak.stop()
	}

	if runErr == nil {
		return res, nil
	}

	// Parent cancellation is the caller's error; our own deadline is a result.
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, ctx.Err()
	}
	if runCtx.Err() != nil {
		res.ExitCode = -1
		res.TimedOut = true
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	return res, opErr("procrunner.wait", exe, runErr)
}

func create(path string) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, opErr("procrunner.create", path, err)
	}
	return f, nil
}

func opErr(op, path string, err error) error {
	return &domain.OpError{
		Op:   op,
		Kind: domain.KindExecution,
		Path: path,
		Err:  fmt.Errorf("%v: %w", err, domain.ErrExecution),
	}
}

// startErr reports a missing executable as not_found.
func startErr(exe string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return &domain.OpError{
			Op:   "procrunner.start",
			Kind: domain.KindNotFound,
			Path: exe,
			Err:  fmt.Errorf("%v: %w", err, domain.ErrNotFound),
		}
	}
	return opErr("procrunner.start", exe, err)
}
