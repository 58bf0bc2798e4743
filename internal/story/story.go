package story

import (
	"errors"
	"fmt"

	"github.com/ivlev/storyvideo/internal/motion"
)

var (
	ErrNoPages    = errors.New("story has no pages")
	ErrNoDuration = errors.New("page has neither duration_us nor audio")
)

// Page is what the compositor draws: one illustration with its caption for
// the length of its narration.
type Page struct {
	ImageRef      string
	Text          string
	AudioDuration int64 // microseconds
	AudioPath     string
	Effect        *motion.Effect
}

// Story is the YAML story description.
type Story struct {
	Version string        `yaml:"version"`
	Title   string        `yaml:"title,omitempty"`
	Pages   []PageSpec    `yaml:"pages"`
	Video   VideoSettings `yaml:"video,omitempty"`

	// Dir is the directory relative references are resolved against.
	Dir string `yaml:"-"`
}

// PageSpec is one page as written in a story file.
type PageSpec struct {
	Image      string  `yaml:"image,omitempty"`
	Text       string  `yaml:"text,omitempty"`
	Audio      string  `yaml:"audio,omitempty"`
	DurationUs int64   `yaml:"duration_us,omitempty"`
	Motion     *Motion `yaml:"motion,omitempty"`
}

// Motion selects a preset or spells out the camera path.
type Motion struct {
	Preset string           `yaml:"preset,omitempty"`
	Start  *motion.Viewport `yaml:"start,omitempty"`
	End    *motion.Viewport `yaml:"end,omitempty"`
	Easing string           `yaml:"easing,omitempty"`
}

// VideoSettings are per-story output overrides; zero means "use config".
type VideoSettings struct {
	Width             int   `yaml:"width,omitempty"`
	Height            int   `yaml:"height,omitempty"`
	FPS               int   `yaml:"fps,omitempty"`
	CrossFadeUs       int64 `yaml:"crossfade_us,omitempty"`
	AudioTransitionUs int64 `yaml:"audio_transition_us,omitempty"`
}

// Effect converts the YAML motion block. A nil block means no motion.
func (m *Motion) Effect() (*motion.Effect, error) {
	if m == nil {
		return nil, nil
	}

	var eff *motion.Effect
	switch {
	case m.Preset != "":
		e, err := motion.Preset(m.Preset)
		if err != nil {
			return nil, err
		}
		eff = e
	case m.Start != nil || m.End != nil:
		start, end := motion.FullFrame, motion.FullFrame
		if m.Start != nil {
			start = *m.Start
		}
		if m.End != nil {
			end = *m.End
		}
		if !start.Valid() {
			return nil, fmt.Errorf("invalid start viewport %+v", start)
		}
		if !end.Valid() {
			return nil, fmt.Errorf("invalid end viewport %+v", end)
		}
		eff = &motion.Effect{Start: start, End: end, Easing: motion.Linear}
	default:
		return nil, nil
	}

	if m.Easing != "" && eff != nil {
		easing, err := motion.ParseEasing(m.Easing)
		if err != nil {
			return nil, err
		}
		eff.Easing = easing
	}
	return eff, nil
}

// DurationProbe returns the length of an audio file in microseconds.
type DurationProbe func(path string) (int64, error)

// Compile turns the story file into compositor pages. Pages without an
// explicit duration get it from probe; probe may be nil when every page has
// duration_us.
func (s *Story) Compile(probe DurationProbe) ([]Page, error) {
	if len(s.Pages) == 0 {
		return nil, ErrNoPages
	}

	pages := make([]Page, 0, len(s.Pages))
	for i, ps := range s.Pages {
		eff, err := ps.Motion.Effect()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}

		p := Page{
			ImageRef:      s.resolve(ps.Image),
			Text:          ps.Text,
			AudioDuration: ps.DurationUs,
			AudioPath:     s.resolve(ps.Audio),
			Effect:        eff,
		}

		if p.AudioDuration <= 0 {
			if p.AudioPath == "" || probe == nil {
				return nil, fmt.Errorf("page %d: %w", i+1, ErrNoDuration)
			}
			d, err := probe(p.AudioPath)
			if err != nil {
				return nil, fmt.Errorf("page %d: probe %s: %w", i+1, p.AudioPath, err)
			}
			p.AudioDuration = d
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// Durations extracts the per-page narration lengths.
func Durations(pages []Page) []int64 {
	out := make([]int64, len(pages))
	for i, p := range pages {
		out[i] = p.AudioDuration
	}
	return out
}
