package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/storyvideo/internal/story"
)

func newInitCmd(g *globals) *cobra.Command {
	var (
		output   string
		duration time.Duration
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "init <images-dir>",
		Short: "Scaffold a story file from a directory of images",
		Long: `Write a story with one page per image, in file name order. Every page
gets the same duration and the motion presets are cycled. Add text and
audio to the pages afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration <= 0 {
				return fmt.Errorf("duration must be positive, got %s", duration)
			}
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", output)
			}

			s, err := story.Scaffold(args[0], filepath.Dir(output), duration.Microseconds())
			if err != nil {
				return err
			}
			if err := story.Save(s, output); err != nil {
				return err
			}
			g.logger.Debug().Str("dir", args[0]).Int("pages", len(s.Pages)).Msg("story scaffolded")
			fmt.Fprintf(cmd.OutOrStdout(), "[+++] Story with %d pages written: %s\n", len(s.Pages), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "story.yaml", "Story file to write")
	cmd.Flags().DurationVar(&duration, "duration", 3*time.Second, "Duration of every page")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing story file")
	return cmd
}
