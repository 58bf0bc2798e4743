package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/ivlev/storyvideo/internal/story"
)

var ErrInvalidVideo = errors.New("invalid video settings")

// Output formats.
const (
	FormatMP4    = "mp4"
	FormatFrames = "frames"
)

type Config struct {
	StoryPath         string
	OutputVideo       string
	Width             int
	Height            int
	FPS               int
	Workers           int
	CrossFadeUs       int64
	AudioTransitionUs int64
	Preset            string
	Format            string
	VideoEncoder      string
	Quality           int
	FFmpegPath        string
	FontPath          string
	FontSize          float64
	AutoMotion        bool
	Detector          string // auto motion region detector: energy, contrast
	Scaler            string // frame scaler: approx-bilinear, bilinear, nearest, catmull-rom
	NoAudio           bool
	DPI               int
	ShowStats         bool
	BuildVersion      string
	Audio             AudioParams
}

// AudioParams is the fixed narration output format.
type AudioParams struct {
	Profile    string
	BitRate    int
	SampleRate int
	Channels   int
}

// Default returns the settings used when neither flags nor the story say
// otherwise.
func Default() *Config {
	return &Config{
		Width:       1280,
		Height:      720,
		FPS:         30,
		Workers:     runtime.NumCPU(),
		CrossFadeUs: 500_000,
		Format:      FormatMP4,
		FFmpegPath:  "ffmpeg",
		FontSize:    36,
		DPI:         150,
		Audio: AudioParams{
			Profile:    "aac_low",
			BitRate:    64_000,
			SampleRate: 44_100,
			Channels:   1,
		},
	}
}

// ApplyPreset overrides the frame size with a named aspect preset.
func (c *Config) ApplyPreset(preset string) error {
	switch preset {
	case "":
		return nil
	case "16:9":
		c.Width, c.Height = 1280, 720
	case "9:16":
		c.Width, c.Height = 720, 1280
	case "4:5":
		c.Width, c.Height = 1080, 1350
	default:
		return fmt.Errorf("unknown preset %q: %w", preset, ErrInvalidVideo)
	}
	c.Preset = preset
	return nil
}

// MergeStory fills settings from the story's video block. Values set
// explicitly on the command line win; explicit is the set of flag names
// the user passed.
func (c *Config) MergeStory(v story.VideoSettings, explicit map[string]bool) {
	if v.Width > 0 && !explicit["width"] && c.Preset == "" {
		c.Width = v.Width
	}
	if v.Height > 0 && !explicit["height"] && c.Preset == "" {
		c.Height = v.Height
	}
	if v.FPS > 0 && !explicit["fps"] {
		c.FPS = v.FPS
	}
	if v.CrossFadeUs > 0 && !explicit["crossfade"] {
		c.CrossFadeUs = v.CrossFadeUs
	}
	if v.AudioTransitionUs > 0 && !explicit["audio-transition"] {
		c.AudioTransitionUs = v.AudioTransitionUs
	}
}

// Validate normalizes the configuration and rejects settings that cannot
// produce a video.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("frame size %dx%d: %w", c.Width, c.Height, ErrInvalidVideo)
	}
	// yuv420p needs even dimensions.
	if c.Width%2 != 0 {
		c.Width++
	}
	if c.Height%2 != 0 {
		c.Height++
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("fps %d: %w", c.FPS, ErrInvalidVideo)
	}
	if c.CrossFadeUs < 0 {
		c.CrossFadeUs = 0
	}
	if c.AudioTransitionUs < 0 {
		c.AudioTransitionUs = 0
	}
	if c.Workers < 1 {
		c.Workers = 1
	}

	c.Format = strings.ToLower(c.Format)
	switch c.Format {
	case "":
		c.Format = FormatMP4
	case FormatMP4, FormatFrames:
	default:
		return fmt.Errorf("format %q: %w", c.Format, ErrInvalidVideo)
	}

	if c.Audio.SampleRate <= 0 || c.Audio.Channels <= 0 || c.Audio.BitRate <= 0 {
		return fmt.Errorf("audio %+v: %w", c.Audio, ErrInvalidVideo)
	}
	if c.FontSize <= 0 {
		c.FontSize = 36
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	return nil
}

// DefaultQuality picks an encoder-specific quality when none was given.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75 // bitrate = Q*100 kbit/s
	case "h264_nvenc":
		return 28 // CQ, close to CRF 23
	default:
		return 23 // x264 CRF
	}
}
