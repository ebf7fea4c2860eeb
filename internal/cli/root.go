package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stanford-futuredata/smol/internal/infra/fsworkspace"
	"github.com/stanford-futuredata/smol/internal/infra/hostinfo"
	"github.com/stanford-futuredata/smol/internal/infra/logger"
	"github.com/stanford-futuredata/smol/internal/infra/procrunner"
	"github.com/stanford-futuredata/smol/internal/infra/workspacefinder"
	"github.com/stanford-futuredata/smol/internal/infra/yamlcfg"
	"github.com/stanford-futuredata/smol/internal/ui/term"
	"github.com/stanford-futuredata/smol/internal/ui/tui"
	"go.uber.org/zap"
)

// Execute runs the smol command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	a := &app{}
	cmd := newRootCmd(a)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		logger.L().Error("command.failed", zap.String("command", cmd.CalledAs()), zap.Error(err))
	}
	a.close()
	if err != nil {
		term.NewPrinter(cmd.ErrOrStderr()).Error(err)
		return 1
	}
	return 0
}

// app holds the flags and resources shared by every subcommand.
type app struct {
	debug     bool
	quiet     bool
	workspace string

	cleanup func() error
}

func (a *app) close() {
	if a.cleanup != nil {
		_ = a.cleanup()
		a.cleanup = nil
	}
}

// setupLogger writes the log under the workspace when one is found, otherwise
// under logRoot.
func (a *app) setupLogger(cmd *cobra.Command, logRoot string) {
	if root, err := resolveWorkspaceRoot(a.workspace); err == nil {
		logRoot = root
	}
	cleanup, err := logger.Setup(logger.Config{
		Root:    logRoot,
		Debug:   a.debug,
		Console: cmd.ErrOrStderr(),
		// the browser owns the terminal, so it only logs to the file
		Quiet: a.quiet || !cmd.HasParent(),
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: file logging disabled: %v\n", err)
		return
	}
	a.cleanup = cleanup
}

func (a *app) tuiDeps() tui.Deps {
	var startDir string
	if w := strings.TrimSpace(a.workspace); w != "" {
		startDir, _ = filepath.Abs(w)
	}
	return tui.Deps{
		StartDir:             startDir,
		WorkspaceLocator:     workspacefinder.NewFinder(),
		WorkspaceInitializer: fsworkspace.NewInitializer(),
		Configs:              yamlcfg.NewStore(),
		Runner:               procrunner.New(procrunner.WithMemorySampling(procrunner.DefaultSampleInterval)),
		Host:                 hostinfo.New(),
		Logger:               logger.L(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "smol",
		Short:         "smol - generate configs and benchmark the inference runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			wd, err := os.Getwd()
			if err != nil {
				wd = "."
			}
			wd, _ = filepath.Abs(wd)
			a.setupLogger(cmd, wd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return tui.Run(cmd.Context(), a.tuiDeps())
		},
	}

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable verbose logging to .smol/logs/smol.log")
	cmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "only log to the file, not the console")
	cmd.PersistentFlags().StringVarP(&a.workspace, "workspace", "w", "", "Workspace root (optional; autodetected from "+workspacefinder.ConfigFile+")")

	cmd.AddCommand(
		initCmd(),
		genCmd(a),
		runCmd(a),
		benchCmd(a),
		resizeCmd(),
		cfgsCmd(a),
		versionCmd(),
	)
	return cmd
}
