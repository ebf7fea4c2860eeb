package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stanford-futuredata/smol/internal/infra/logger"
	"github.com/stanford-futuredata/smol/internal/ui/term"
	"github.com/stanford-futuredata/smol/internal/usecase"
)

func genCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "gen",
		Short: "Generate experiment configs from a template and a sweep",
	}
	c.AddCommand(
		genKindCmd(a, usecase.GenImage, "Image classification configs (e2e, ablation, tahoma)"),
		genKindCmd(a, usecase.GenNoScope, "NoScope binary video classification configs"),
		genKindCmd(a, usecase.GenBlazeIt, "BlazeIt counting and limit query configs"),
	)
	return c
}

func genKindCmd(a *app, kind usecase.GenKind, short string) *cobra.Command {
	var sweep string
	var template string
	var out string
	var sets []string
	var dryRun bool

	c := &cobra.Command{
		Use:   string(kind),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(a.workspace)
			if err != nil {
				return err
			}

			req := usecase.GenerateRequest{
				Kind:         kind,
				SweepPath:    defaultSweep(ws, sweep, kind),
				TemplatePath: optionalAbs(template),
				TemplatesDir: ws.path(ws.cfg.Paths.TemplatesDir),
				OutRoot:      ws.path(ws.cfg.Paths.CfgsDir),
				Sets:         sets,
				DryRun:       dryRun,
			}
			if out != "" {
				req.OutRoot = absFromWD(out)
			}

			store := ws.configs
			uc := usecase.NewGenerateConfigs(store, store, store, logger.L())
			paths, err := uc.Execute(cmd.Context(), req)
			if err != nil {
				return err
			}

			if dryRun {
				term.NewPrinter(cmd.OutOrStdout()).Lines(fmt.Sprintf("%d configs (dry run)", len(paths)), paths)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d configs under %s\n", len(paths), req.OutRoot)
			return nil
		},
	}

	c.Flags().StringVar(&sweep, "sweep", "", "Sweep file (default: <sweeps dir>/"+string(kind)+".yaml if present, else built-in lists)")
	c.Flags().StringVar(&template, "template", "", "Template config (overrides the sweep's template)")
	c.Flags().StringVarP(&out, "out", "o", "", "Output root (default: workspace cfgs dir)")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "Print the config paths without writing them")
	if kind == usecase.GenImage {
		c.Flags().StringSliceVar(&sets, "set", nil, "Config sets to generate: e2e,ablation,tahoma (default all)")
	}
	return c
}

func defaultSweep(ws *workspaceCtx, flag string, kind usecase.GenKind) string {
	if flag != "" {
		return absFromWD(flag)
	}
	p := filepath.Join(ws.path(ws.cfg.Paths.SweepsDir), string(kind)+".yaml")
	if ws.found && fileExists(p) {
		return p
	}
	return ""
}

func optionalAbs(p string) string {
	if p == "" {
		return ""
	}
	return absFromWD(p)
}
