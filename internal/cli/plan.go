package cli

import (
	"github.com/spf13/cobra"
)

func newPlanCmd(g *globals) *cobra.Command {
	var v videoFlags
	cmd := &cobra.Command{
		Use:   "plan [story.yaml]",
		Short: "Print the timeline of a story without rendering",
		Long: `Print every page's narration and visible window, the effective
cross-fade and the number of frames a render would produce.

Narration without duration_us is probed with ffprobe.`,
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

			plan, err := r.Plan(path)
			if err != nil {
				return err
			}
			if plan.Timeline.CrossFade < plan.Timeline.Requested {
				g.logger.Warn().
					Int64("requested_us", plan.Timeline.Requested).
					Int64("effective_us", plan.Timeline.CrossFade).
					Msg("cross-fade clipped to the shortest page")
			}
			plan.Print(cmd.OutOrStdout())
			return nil
		},
	}
	v.register(cmd.Flags())
	return cmd
}
