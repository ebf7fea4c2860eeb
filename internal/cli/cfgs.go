package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stanford-futuredata/smol/internal/infra/yamlcfg"
	"github.com/stanford-futuredata/smol/internal/ui/term"
)

func cfgsCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "cfgs",
		Short: "Inspect generated configs",
	}
	c.AddCommand(cfgsListCmd(a), cfgsGetCmd(a))
	return c
}

func cfgsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List configs under a directory (default: workspace cfgs dir)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(a.workspace)
			if err != nil {
				return err
			}
			dir := ws.path(ws.cfg.Paths.CfgsDir)
			if len(args) == 1 {
				dir = absFromWD(args[0])
			}

			refs, err := ws.configs.ListConfigs(dir)
			if err != nil {
				return err
			}
			items := make([]string, 0, len(refs))
			for _, r := range refs {
				items = append(items, r.Rel)
			}
			term.NewPrinter(cmd.OutOrStdout()).Lines(fmt.Sprintf("%s (%d)", dir, len(refs)), items)
			return nil
		},
	}
}

func cfgsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <file> <jsonpath>",
		Short: "Print a value from a config, e.g. model-config.model-single.onnx-path or $.crop.xmax",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(a.workspace)
			if err != nil {
				return err
			}
			path, err := resolveConfigPath(ws, args[0])
			if err != nil {
				return err
			}
			doc, err := ws.configs.LoadConfig(path)
			if err != nil {
				return err
			}
			v, err := yamlcfg.Query(doc, args[1])
			if err != nil {
				return withPath(err, filepath.Clean(path))
			}
			fmt.Fprintln(cmd.OutOrStdout(), yamlcfg.FormatValue(v))
			return nil
		},
	}
}
