package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/infra/logger"
	"github.com/stanford-futuredata/smol/internal/infra/metrics"
	"github.com/stanford-futuredata/smol/internal/infra/runstore"
	"github.com/stanford-futuredata/smol/internal/ui/term"
	"github.com/stanford-futuredata/smol/internal/usecase"
)

func runCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Benchmark configs with the external runner",
	}
	c.AddCommand(runSingleCmd(a), runManyCmd(a))
	return c
}

// trialFlags are shared by run single and run many.
type trialFlags struct {
	exe     string
	mode    string
	trials  int
	settle  time.Duration
	timeout time.Duration
	format  string
}

func (f *trialFlags) register(c *cobra.Command, defaultMode domain.ExperimentMode) {
	c.Flags().StringVar(&f.exe, "exec", "", "Runner executable (default: from smol.yaml for the mode)")
	c.Flags().StringVar(&f.mode, "mode", string(defaultMode), "Experiment mode: image|video")
	c.Flags().IntVar(&f.trials, "trials", -1, "Timed trials per config; 0 runs setup only (default: from smol.yaml)")
	c.Flags().DurationVar(&f.settle, "settle", 0, "Wait after the setup run (default: from smol.yaml)")
	c.Flags().DurationVar(&f.timeout, "timeout", 0, "Kill a trial after this long (0 = from smol.yaml, none by default)")
	c.Flags().StringVar(&f.format, "format", "pretty", "Output format: pretty|json")
}

func (f *trialFlags) resolve(ws *workspaceCtx) (domain.ExperimentMode, string, int, time.Duration, time.Duration, error) {
	mode, err := parseMode(f.mode)
	if err != nil {
		return "", "", 0, 0, 0, err
	}
	trials, settle, timeout := f.trials, f.settle, f.timeout
	if trials < 0 {
		trials = ws.cfg.Runner.Trials
	}
	if settle <= 0 {
		settle = ws.cfg.Runner.SettleDelay
	}
	if timeout <= 0 {
		timeout = ws.cfg.Runner.TrialTimeout
	}
	return mode, ws.executable(f.exe, mode), trials, settle, timeout, nil
}

func parseMode(s string) (domain.ExperimentMode, error) {
	switch domain.ExperimentMode(s) {
	case domain.ModeImage, domain.ModeVideo:
		return domain.ExperimentMode(s), nil
	default:
		return "", domain.InvalidConfig("cli.mode", "", "unsupported mode %q (expected image|video)", s)
	}
}

func runSingleCmd(a *app) *cobra.Command {
	var tf trialFlags
	var cfg string
	var out string

	c := &cobra.Command{
		Use:   "single",
		Short: "Run one config: a setup run, then timed trials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(a.workspace)
			if err != nil {
				return err
			}
			mode, exe, trials, settle, timeout, err := tf.resolve(ws)
			if err != nil {
				return err
			}
			cfgPath, err := resolveConfigPath(ws, cfg)
			if err != nil {
				return err
			}
			outDir := absFromWD(out)

			uc := usecase.NewRunExperiment(ws.configs, ws.runner,
				usecase.WithArtifactStore(runstore.New(runstore.WithIndex(filepath.Dir(outDir)))),
				usecase.WithHost(ws.host),
				usecase.WithLogger(logger.L()),
			)
			res, err := uc.Execute(cmd.Context(), usecase.ExperimentRequest{
				Executable:   exe,
				ConfigPath:   cfgPath,
				OutDir:       outDir,
				Mode:         mode,
				Trials:       trials,
				SettleDelay:  settle,
				TrialTimeout: timeout,
			})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), tf.format, res, func(p *term.Printer) { p.Experiment(res) })
		},
	}

	tf.register(c, domain.ModeImage)
	c.Flags().StringVarP(&cfg, "cfg", "c", "", "Config file (required)")
	c.Flags().StringVarP(&out, "out", "o", "", "Output directory, recreated on every run (required)")
	_ = c.MarkFlagRequired("cfg")
	_ = c.MarkFlagRequired("out")
	return c
}

func runManyCmd(a *app) *cobra.Command {
	var tf trialFlags
	var dataset string
	var cfgDir string
	var outBase string
	var metricsFile string

	c := &cobra.Command{
		Use:   "many",
		Short: "Run every config under a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(a.workspace)
			if err != nil {
				return err
			}
			mode, exe, trials, settle, timeout, err := tf.resolve(ws)
			if err != nil {
				return err
			}

			dir := filepath.Join(ws.path(ws.cfg.Paths.CfgsDir), dataset)
			if cfgDir != "" {
				dir = absFromWD(cfgDir)
			}
			base := ws.path(ws.cfg.Paths.OutDir)
			if outBase != "" {
				base = absFromWD(outBase)
			}

			exp := usecase.NewRunExperiment(ws.configs, ws.runner,
				usecase.WithArtifactStore(runstore.New(runstore.WithIndex(base))),
				usecase.WithHost(ws.host),
				usecase.WithLogger(logger.L()),
			)
			opts := []usecase.SweepOption{usecase.WithSweepLogger(logger.L())}
			if metricsFile != "" {
				opts = append(opts, usecase.WithMetricsSink(metrics.NewTextfile(absFromWD(metricsFile))))
			}

			res, err := usecase.NewRunSweep(ws.configs, exp, opts...).Execute(cmd.Context(), usecase.SweepRequest{
				Executable:   exe,
				Dataset:      dataset,
				CfgDir:       dir,
				OutBase:      base,
				Mode:         mode,
				Trials:       trials,
				SettleDelay:  settle,
				TrialTimeout: timeout,
			})
			if err != nil {
				return err
			}
			if err := printResult(cmd.OutOrStdout(), tf.format, res, func(p *term.Printer) { p.Sweep(res) }); err != nil {
				return err
			}
			if n := len(res.Failed); n > 0 {
				return fmt.Errorf("sweep finished with %d failed config(s)", n)
			}
			return nil
		},
	}

	tf.register(c, domain.ModeVideo)
	c.Flags().StringVarP(&dataset, "dataset", "d", "", "Dataset name, used in the output layout (required)")
	c.Flags().StringVar(&cfgDir, "cfg-dir", "", "Config directory (default: <cfgs dir>/<dataset>)")
	c.Flags().StringVar(&outBase, "out-base", "", "Output base directory (default: workspace out dir)")
	c.Flags().StringVar(&metricsFile, "metrics-file", "", "Write a Prometheus textfile snapshot of the sweep")
	_ = c.MarkFlagRequired("dataset")
	return c
}

func printResult(w io.Writer, format string, v any, pretty func(*term.Printer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "pretty", "":
		pretty(term.NewPrinter(w))
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}
