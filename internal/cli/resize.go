package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stanford-futuredata/smol/internal/infra/imgresize"
	"github.com/stanford-futuredata/smol/internal/infra/logger"
)

func resizeCmd() *cobra.Command {
	var o imgresize.Options

	c := &cobra.Command{
		Use:   "resize",
		Short: "Resize a class-per-directory image dataset (shorter side to --resize-dim)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := imgresize.New(imgresize.WithLogger(logger.L())).Run(cmd.Context(), o)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resized %d images in %d classes into %s\n", st.Images, st.Classes, o.OutputDir)
			return nil
		},
	}

	c.Flags().StringVar(&o.InputDir, "input-dir", "", "Dataset root with one directory per class (required)")
	c.Flags().StringVar(&o.OutputDir, "output-dir", "", "Destination root (required)")
	c.Flags().IntVar(&o.Dim, "resize-dim", imgresize.DefaultDim, "Length of the shorter side after resizing")
	c.Flags().IntVar(&o.Quality, "quality", -1, "JPEG quality when --ext jpg (-1 = encoder default)")
	c.Flags().StringVar(&o.Ext, "ext", "", "Re-encode as jpg or png (default: keep each file's format)")
	_ = c.MarkFlagRequired("input-dir")
	_ = c.MarkFlagRequired("output-dir")
	return c
}
