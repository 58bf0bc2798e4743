// Package engine renders story files into videos: it resolves the story,
// runs the compositor into a video sink and the narration into the audio
// encoder in parallel, then joins both.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/storyvideo/internal/analyzer"
	"github.com/ivlev/storyvideo/internal/audio"
	"github.com/ivlev/storyvideo/internal/compositor"
	"github.com/ivlev/storyvideo/internal/config"
	"github.com/ivlev/storyvideo/internal/director"
	"github.com/ivlev/storyvideo/internal/overlay"
	"github.com/ivlev/storyvideo/internal/source"
	"github.com/ivlev/storyvideo/internal/story"
	"github.com/ivlev/storyvideo/internal/system"
	"github.com/ivlev/storyvideo/internal/video"
)

// Renderer turns story files into videos using one base configuration.
type Renderer struct {
	Config *config.Config
	// Explicit holds the config fields set on the command line; the story's
	// video block does not override them.
	Explicit map[string]bool
	Probe    story.DurationProbe
	Log      zerolog.Logger
	// Out receives the console progress lines.
	Out io.Writer
	// OutputDir holds generated output names when the config has none.
	OutputDir string
}

func New(cfg *config.Config, log zerolog.Logger) *Renderer {
	return &Renderer{
		Config:    cfg,
		Explicit:  map[string]bool{},
		Probe:     audio.ProbeDuration,
		Log:       log,
		Out:       os.Stdout,
		OutputDir: "output",
	}
}

// Result describes a finished render.
type Result struct {
	RunID    string
	Story    string
	Output   string
	Pages    int
	Duration time.Duration // length of the video
	Video    video.Stats
	Elapsed  time.Duration
	Memory   system.MemStats
}

// Render produces the configured output for storyPath.
func (r *Renderer) Render(ctx context.Context, storyPath string) (*Result, error) {
	start := time.Now()
	plan, err := r.Plan(storyPath)
	if err != nil {
		return nil, err
	}
	cfg := &plan.Config

	scaler, err := compositor.ParseScaler(cfg.Scaler)
	if err != nil {
		return nil, err
	}
	var detector analyzer.Detector
	if cfg.AutoMotion {
		if detector, err = analyzer.NewDetector(cfg.Detector); err != nil {
			return nil, err
		}
	}

	res := &Result{
		RunID:  uuid.NewString(),
		Story:  storyPath,
		Output: cfg.OutputVideo,
		Pages:  len(plan.Pages),
	}
	if res.Output == "" {
		ext := ".mp4"
		if cfg.Format == config.FormatFrames {
			ext = ""
		}
		res.Output = system.OutputName(r.OutputDir, storyPath, ext, time.Now())
	}
	log := r.Log.With().Str("run", res.RunID[:8]).Str("story", filepath.Base(storyPath)).Logger()

	withAudio := !cfg.NoAudio && hasNarration(plan.Pages)
	if cfg.Format == config.FormatMP4 || withAudio {
		path, err := system.CheckFFmpeg(cfg.FFmpegPath)
		if err != nil {
			return nil, err
		}
		cfg.FFmpegPath = path
	}

	tmpDir, err := os.MkdirTemp("", "storyvideo_"+res.RunID[:8]+"_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	resolver := source.NewResolver(cfg.DPI, min(cfg.Width, cfg.Height)/2)
	defer resolver.Close()

	pages := plan.Pages
	if cfg.AutoMotion {
		pages = applyAutoMotion(pages, resolver, detector, cfg.Width, cfg.Height, log)
	}

	face, err := overlay.LoadFace(cfg.FontPath, cfg.FontSize)
	if err != nil {
		return nil, err
	}
	comp, err := compositor.New(pages, compositor.Options{
		Width:             cfg.Width,
		Height:            cfg.Height,
		FPS:               cfg.FPS,
		CrossFadeUs:       cfg.CrossFadeUs,
		AudioTransitionUs: cfg.AudioTransitionUs,
		Provider:          resolver,
		Caption:           overlay.DefaultOptions(cfg.Width, cfg.Height, face),
		Scaler:            scaler,
		Logger:            log,
	})
	if err != nil {
		return nil, err
	}
	defer comp.Close()
	res.Duration = time.Duration(comp.Timeline().TotalDuration()) * time.Microsecond

	fmt.Fprintf(r.Out, "[*] Story: %s | Pages: %d | Frames: %d\n", storyPath, len(pages), comp.FrameCount())
	fmt.Fprintf(r.Out, "[*] Resolution: %dx%d @ %d FPS | Cross-fade: %dms\n",
		cfg.Width, cfg.Height, cfg.FPS, comp.Timeline().CrossFade/1000)

	sink, videoPath, audioPath, err := r.outputs(ctx, cfg, res.Output, tmpDir, withAudio)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p := &progress{Compositor: comp, out: r.Out, total: comp.FrameCount(), every: cfg.FPS * 5}
		stats, err := video.Drive(gctx, p, sink)
		res.Video = stats
		if err != nil {
			return fmt.Errorf("video: %w", err)
		}
		log.Debug().Int("frames", stats.Frames).Float64("fps", stats.FPS()).Msg("video pass finished")
		return nil
	})
	if withAudio {
		g.Go(func() error {
			if err := encodeNarration(gctx, cfg, plan.Pages, audioPath, log); err != nil {
				return fmt.Errorf("audio: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if withAudio && cfg.Format == config.FormatMP4 {
		fmt.Fprintln(r.Out, "[*] Muxing video and narration...")
		if err := video.Mux(ctx, videoPath, audioPath, res.Output, cfg.FFmpegPath); err != nil {
			return nil, err
		}
	}

	res.Elapsed = time.Since(start)
	if m, err := system.MemoryReport(); err == nil {
		res.Memory = m
	} else {
		log.Debug().Err(err).Msg("memory stats unavailable")
	}
	log.Info().
		Str("output", res.Output).
		Int("frames", res.Video.Frames).
		Dur("elapsed", res.Elapsed).
		Msg("render finished")
	fmt.Fprintf(r.Out, "[+++] Done: %s\n", res.Output)

	if cfg.ShowStats {
		r.report(cfg, res)
	}
	return res, nil
}

// outputs picks the video sink and the intermediate paths. An mp4 with
// narration is encoded video-only into tmpDir and muxed afterwards.
func (r *Renderer) outputs(ctx context.Context, cfg *config.Config, out, tmpDir string, withAudio bool) (video.Sink, string, string, error) {
	if cfg.Format == config.FormatFrames {
		// The narration lands next to the frames and may start first.
		if err := os.MkdirAll(out, 0755); err != nil {
			return nil, "", "", err
		}
		return video.NewFramesSink(out), "", filepath.Join(out, "narration.m4a"), nil
	}

	encoder := cfg.VideoEncoder
	if encoder == "" {
		encoder = system.GetBestH264Encoder(cfg.FFmpegPath)
	}
	quality := cfg.Quality
	if quality <= 0 {
		quality = config.DefaultQuality(encoder)
	}
	r.Log.Debug().Str("encoder", encoder).Int("quality", quality).Msg("video encoder selected")

	videoPath := out
	if withAudio {
		videoPath = filepath.Join(tmpDir, "video.mp4")
	}
	sink := video.NewFFmpegSink(ctx, videoPath, video.EncoderOptions{
		FFmpegPath: cfg.FFmpegPath,
		Encoder:    encoder,
		Quality:    quality,
	})
	return sink, videoPath, filepath.Join(tmpDir, "narration.m4a"), nil
}

// applyAutoMotion gives every page without a motion block a move towards
// its most detailed region. Pages alternate between zooming in and out.
func applyAutoMotion(pages []story.Page, p source.Provider, det analyzer.Detector, w, h int, log zerolog.Logger) []story.Page {
	dir := director.NewDirector(w, h)
	if det != nil {
		dir.Detector = det
	}
	out := make([]story.Page, len(pages))
	copy(out, pages)

	for i := range out {
		if out[i].Effect != nil || out[i].ImageRef == "" {
			continue
		}
		img, err := p.Image(out[i].ImageRef)
		if err != nil || img == nil {
			continue
		}
		eff, err := dir.AutoEffect(img, i%2 == 1)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("auto motion failed")
			continue
		}
		out[i].Effect = eff
		if eff != nil {
			log.Debug().Int("page", i+1).Interface("end", eff.End).Msg("auto motion")
		}
	}
	return out
}

// progress prints a line every `every` frames.
type progress struct {
	*compositor.Compositor
	out   io.Writer
	total int
	every int
	n     int
}

func (p *progress) Next() (compositor.Frame, bool) {
	f, ok := p.Compositor.Next()
	if ok {
		p.n++
		if p.every > 0 && (p.n%p.every == 0 || p.n == p.total) {
			fmt.Fprintf(p.out, "[>] Frames: %d/%d\n", p.n, p.total)
		}
	}
	return f, ok
}
