package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newBatchCmd(g *globals) *cobra.Command {
	var (
		v       videoFlags
		outDir  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Render every story in a directory",
		Long: `Render every *.yaml story in a directory. Stories are rendered in
parallel; a failing story does not stop the others.

Examples:
  storyvideo batch input/stories --workers 2
  storyvideo batch stories/ -o renders/ --format frames --no-audio`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.renderer(cmd, &v)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = r.OutputDir
			}

			results, err := r.RunBatch(cmd.Context(), args[0], outDir, workers)
			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[*] Batch: %d rendered, %d failed\n", len(results)-failed, failed)
			return err
		},
	}
	v.register(cmd.Flags())
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Output directory (default: $"+EnvOutputDir+" or output/)")
	cmd.Flags().IntVar(&workers, "workers", max(1, runtime.NumCPU()/2), "Stories rendered at the same time")
	return cmd
}
