package cli

import (
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/ivlev/storyvideo/internal/config"
)

// videoFlags are the rendering flags shared by render, batch and plan.
type videoFlags struct {
	width, height, fps int
	crossFade          time.Duration
	audioTransition    time.Duration
	preset             string
	format             string
	encoder            string
	quality            int
	ffmpeg             string
	font               string
	fontSize           float64
	dpi                int
	noAudio            bool
	autoMotion         bool
	detector           string
	scaler             string
	stats              bool
}

// storyFlags are the flag names a story's video block must not override.
var storyFlags = []string{"width", "height", "fps", "crossfade", "audio-transition"}

func (v *videoFlags) register(fs *pflag.FlagSet) {
	d := config.Default()
	fs.IntVar(&v.width, "width", d.Width, "Frame width")
	fs.IntVar(&v.height, "height", d.Height, "Frame height")
	fs.IntVar(&v.fps, "fps", d.FPS, "Frames per second")
	fs.DurationVar(&v.crossFade, "crossfade", time.Duration(d.CrossFadeUs)*time.Microsecond, "Cross-fade between pages")
	fs.DurationVar(&v.audioTransition, "audio-transition", 0, "Silence after every page's narration")
	fs.StringVar(&v.preset, "preset", "", "Frame size preset: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	fs.StringVar(&v.format, "format", d.Format, "Output format (mp4, frames)")
	fs.StringVar(&v.encoder, "encoder", "", "H.264 encoder (empty: detect hardware encoder)")
	fs.IntVar(&v.quality, "quality", 0, "Quality (0 auto, x264: CRF 1-51, VideoToolbox: bitrate = Q*100 kbit/s)")
	fs.StringVar(&v.ffmpeg, "ffmpeg", d.FFmpegPath, "ffmpeg binary")
	fs.StringVar(&v.font, "font", "", "Caption TTF/OTF font (empty: Go Regular)")
	fs.Float64Var(&v.fontSize, "font-size", d.FontSize, "Caption font size in points")
	fs.IntVar(&v.dpi, "dpi", d.DPI, "PDF page rendering DPI")
	fs.BoolVar(&v.noAudio, "no-audio", false, "Skip the narration track")
	fs.BoolVar(&v.autoMotion, "auto-motion", false, "Move towards the most detailed region on pages without motion")
	fs.StringVar(&v.detector, "detector", "energy", "Region detector for --auto-motion (energy, contrast)")
	fs.StringVar(&v.scaler, "scaler", "approx-bilinear", "Frame scaler (approx-bilinear, bilinear, nearest, catmull-rom)")
	fs.BoolVar(&v.stats, "stats", false, "Print a performance report and append it to benchmark.log")
}

// config builds the render configuration. Environment defaults apply to
// flags the user did not set.
func (v *videoFlags) config(fs *pflag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.FPS = v.width, v.height, v.fps
	cfg.CrossFadeUs = v.crossFade.Microseconds()
	cfg.AudioTransitionUs = v.audioTransition.Microseconds()
	cfg.Format = v.format
	cfg.VideoEncoder = v.encoder
	cfg.Quality = v.quality
	cfg.FFmpegPath = v.ffmpeg
	cfg.FontPath = v.font
	cfg.FontSize = v.fontSize
	cfg.DPI = v.dpi
	cfg.NoAudio = v.noAudio
	cfg.AutoMotion = v.autoMotion
	cfg.Detector = v.detector
	cfg.Scaler = v.scaler
	cfg.ShowStats = v.stats
	cfg.BuildVersion = BuildVersion

	if !fs.Changed("ffmpeg") {
		if p := os.Getenv(EnvFFmpeg); p != "" {
			cfg.FFmpegPath = p
		}
	}
	if !fs.Changed("font") {
		cfg.FontPath = os.Getenv(EnvFont)
	}

	if err := cfg.ApplyPreset(v.preset); err != nil {
		return nil, err
	}
	return cfg, nil
}

// explicit reports which story-overridable settings were given as flags.
func explicit(fs *pflag.FlagSet) map[string]bool {
	out := map[string]bool{}
	for _, name := range storyFlags {
		if fs.Changed(name) {
			out[name] = true
		}
	}
	return out
}

// outputDir is where generated output names go.
func outputDir() string {
	if d := os.Getenv(EnvOutputDir); d != "" {
		return d
	}
	return "output"
}
