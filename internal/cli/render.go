package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlev/storyvideo/internal/engine"
	"github.com/ivlev/storyvideo/internal/system"
)

// StoriesDir is searched for the latest story when none is given.
const StoriesDir = "input/stories"

func newRenderCmd(g *globals) *cobra.Command {
	var (
		v      videoFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "render [story.yaml]",
		Short: "Render a story into a video",
		Long: `Render a story file into an mp4 with its narration, or into a
directory of PNG frames.

Without an argument the most recently modified story in input/stories is used.

Examples:
  storyvideo render story.yaml
  storyvideo render story.yaml -o out.mp4 --preset 9:16 --auto-motion
  storyvideo render story.yaml --format frames --no-audio -o frames/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := storyArg(cmd, args)
			if err != nil {
				return err
			}
			r, err := g.renderer(cmd, &v)
			if err != nil {
				return err
			}
			r.Config.OutputVideo = output

			_, err = r.Render(cmd.Context(), path)
			return err
		},
	}
	v.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: generated in $"+EnvOutputDir+" or output/)")
	return cmd
}

func (g *globals) renderer(cmd *cobra.Command, v *videoFlags) (*engine.Renderer, error) {
	cfg, err := v.config(cmd.Flags())
	if err != nil {
		return nil, err
	}
	r := engine.New(cfg, g.logger)
	r.Explicit = explicit(cmd.Flags())
	r.Out = cmd.OutOrStdout()
	r.OutputDir = outputDir()
	return r, nil
}

func storyArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	latest, err := system.FindLatestFile(StoriesDir, system.StoryExts)
	if err != nil {
		return "", fmt.Errorf("%w; pass a story file or put one into %s", err, StoriesDir)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[*] Selected story: %s\n", latest)
	return latest, nil
}
