package engine

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ivlev/storyvideo/internal/config"
	"github.com/ivlev/storyvideo/internal/story"
	"github.com/ivlev/storyvideo/internal/timeline"
)

// Plan is a story resolved against the configuration: final settings, page
// list and timing. Building it touches no encoder.
type Plan struct {
	StoryPath string
	Story     *story.Story
	Config    config.Config
	Pages     []story.Page
	Timeline  timeline.Timeline
}

// Frames is the number of frames the render will produce.
func (p *Plan) Frames() int {
	return p.Timeline.FrameCount(p.Config.FPS)
}

// Plan loads storyPath and lays out its timeline. The renderer's Config is
// copied, never modified.
func (r *Renderer) Plan(storyPath string) (*Plan, error) {
	s, err := story.Load(storyPath)
	if err != nil {
		return nil, fmt.Errorf("load story: %w", err)
	}

	cfg := *r.Config
	cfg.StoryPath = storyPath
	cfg.MergeStory(s.Video, r.Explicit)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pages, err := s.Compile(r.Probe)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", storyPath, err)
	}

	return &Plan{
		StoryPath: storyPath,
		Story:     s,
		Config:    cfg,
		Pages:     pages,
		Timeline:  timeline.Build(story.Durations(pages), cfg.CrossFadeUs, cfg.AudioTransitionUs),
	}, nil
}

func secs(us int64) string {
	return fmt.Sprintf("%.3fs", float64(us)/1e6)
}

// Print writes the page table and totals.
func (p *Plan) Print(w io.Writer) {
	tl := p.Timeline
	fmt.Fprintf(w, "[*] Story: %s | Pages: %d\n", p.StoryPath, len(p.Pages))
	fmt.Fprintf(w, "[*] Resolution: %dx%d @ %d FPS\n", p.Config.Width, p.Config.Height, p.Config.FPS)
	fmt.Fprintf(w, "[*] Cross-fade: %s (requested %s) | Audio transition: %s\n",
		secs(tl.CrossFade), secs(tl.Requested), secs(tl.AudioTransition))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tAUDIO\tVISIBLE\tFADE OUT\tIMAGE\tMOTION")
	for i, page := range p.Pages {
		win := tl.Window(i)
		fade := "-"
		if i+1 < len(p.Pages) {
			fade = secs(tl.TransitionStart(i))
		}
		motion := "-"
		if page.Effect != nil {
			motion = string(page.Effect.Easing)
		}
		image := page.ImageRef
		if image == "" {
			image = "(none)"
		}
		fmt.Fprintf(tw, "%d\t%s-%s\t%s-%s\t%s\t%s\t%s\n", i+1,
			secs(win.AudioStart), secs(win.AudioEnd),
			secs(win.VisibleStart), secs(win.VisibleEnd),
			fade, image, motion)
	}
	tw.Flush()

	fmt.Fprintf(w, "[*] Total: %s | Frames: %d\n", secs(tl.TotalDuration()), p.Frames())
}
