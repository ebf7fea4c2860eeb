package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stanford-futuredata/smol/internal/infra/fsworkspace"
	"github.com/stanford-futuredata/smol/internal/infra/logger"
	"github.com/stanford-futuredata/smol/internal/usecase"
	"go.uber.org/zap"
)

func initCmd() *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a smol workspace with example templates and sweeps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			root, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			uc := usecase.NewInitWorkspace(fsworkspace.NewInitializer())
			if err := uc.Execute(root, force); err != nil {
				return err
			}
			logger.L().Info("workspace.init", zap.String("root", root), zap.Bool("force", force))
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized smol workspace in %s\n", root)
			return nil
		},
	}

	c.Flags().BoolVar(&force, "force", false, "Overwrite existing template files")
	return c
}
