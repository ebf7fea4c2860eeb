package cli

import (
	"github.com/spf13/cobra"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/infra/logger"
	"github.com/stanford-futuredata/smol/internal/infra/runstore"
	"github.com/stanford-futuredata/smol/internal/ui/term"
	"github.com/stanford-futuredata/smol/internal/usecase"
)

func benchCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "bench",
		Short: "Micro-benchmarks built on the external runner",
	}
	c.AddCommand(throughputCmd(a))
	return c
}

func throughputCmd(a *app) *cobra.Command {
	def := usecase.DefaultThroughputRequest()
	req := def
	var exe, cfg, out, format string

	c := &cobra.Command{
		Use:   "throughput",
		Short: "Measure images/sec over power-of-two batch sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(a.workspace)
			if err != nil {
				return err
			}
			cfgPath, err := resolveConfigPath(ws, cfg)
			if err != nil {
				return err
			}

			r := req
			r.Executable = ws.executable(exe, domain.ModeImage)
			r.ConfigPath = cfgPath
			r.OutDir = absFromWD(out)
			if r.TrialTimeout <= 0 {
				r.TrialTimeout = ws.cfg.Runner.TrialTimeout
			}

			uc := usecase.NewThroughput(ws.configs, ws.configs, ws.runner,
				usecase.WithThroughputStore(runstore.New()),
				usecase.WithThroughputLogger(logger.L()),
			)
			res, err := uc.Execute(cmd.Context(), r)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), format, res, func(p *term.Printer) { p.Throughput(res) })
		},
	}

	c.Flags().StringVar(&exe, "exec", "", "Runner executable (default: from smol.yaml)")
	c.Flags().StringVarP(&cfg, "cfg", "c", "", "Base config (required)")
	c.Flags().StringVarP(&out, "out", "o", "", "Output directory (required)")
	c.Flags().IntVar(&req.MinExp, "min-exp", def.MinExp, "Smallest batch size exponent")
	c.Flags().IntVar(&req.MaxExp, "max-exp", def.MaxExp, "Largest batch size exponent")
	c.Flags().IntVar(&req.Warmup, "warmup", def.Warmup, "Untimed runs per batch size")
	c.Flags().IntVar(&req.Trials, "trials", def.Trials, "Timed runs per batch size")
	c.Flags().DurationVar(&req.Cooldown, "cooldown", def.Cooldown, "Pause between batch sizes")
	c.Flags().DurationVar(&req.TrialTimeout, "timeout", 0, "Kill a run after this long")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	_ = c.MarkFlagRequired("cfg")
	_ = c.MarkFlagRequired("out")
	return c
}
