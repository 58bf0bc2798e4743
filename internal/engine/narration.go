package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/ivlev/storyvideo/internal/audio"
	"github.com/ivlev/storyvideo/internal/config"
	"github.com/ivlev/storyvideo/internal/story"
)

func hasNarration(pages []story.Page) bool {
	for _, p := range pages {
		if p.AudioPath != "" {
			return true
		}
	}
	return false
}

// segment is one stretch of the narration track.
type segment struct {
	page       int
	path       string // empty for silence
	durationUs int64
}

// narrationPlan lays the track out the way the timeline does: each page's
// narration cut or padded to its duration, followed by the audio
// transition gap.
func narrationPlan(pages []story.Page, transitionUs int64) []segment {
	var segs []segment
	for i, p := range pages {
		segs = append(segs, segment{page: i, path: p.AudioPath, durationUs: p.AudioDuration})
		if transitionUs > 0 {
			segs = append(segs, segment{page: i, durationUs: transitionUs})
		}
	}
	return segs
}

func audioFormat(p config.AudioParams) audio.Format {
	return audio.Format{
		Profile:    p.Profile,
		BitRate:    p.BitRate,
		SampleRate: p.SampleRate,
		Channels:   p.Channels,
	}
}

// encodeNarration writes the narration of all pages into one audio file at
// outPath.
func encodeNarration(ctx context.Context, cfg *config.Config, pages []story.Page, outPath string, log zerolog.Logger) (err error) {
	enc := audio.NewEncoder(audioFormat(cfg.Audio), audio.FFmpegCodec(cfg.FFmpegPath), audio.FileMuxer(cfg.FFmpegPath))
	enc.Log = log
	enc.SetOutputPath(outPath)
	if err := enc.Prepare(); err != nil {
		return err
	}
	defer func() {
		if serr := enc.Stop(); serr != nil {
			err = errors.Join(err, serr)
		}
	}()

	return writeSegments(ctx, enc, narrationPlan(pages, cfg.AudioTransitionUs), cfg.Audio, func(path string) (io.ReadCloser, error) {
		return audio.DecodePCM(ctx, path, cfg.FFmpegPath, cfg.Audio.SampleRate, cfg.Audio.Channels)
	})
}

type pcmEncoder interface {
	Encode(ctx context.Context, r io.Reader, sampleRate int) error
}

func writeSegments(ctx context.Context, enc pcmEncoder, segs []segment, p config.AudioParams, open func(string) (io.ReadCloser, error)) error {
	for _, s := range segs {
		if s.path == "" {
			if err := enc.Encode(ctx, audio.Silence(s.durationUs, p.SampleRate, p.Channels), p.SampleRate); err != nil {
				return fmt.Errorf("page %d silence: %w", s.page+1, err)
			}
			continue
		}

		rc, err := open(s.path)
		if err != nil {
			return fmt.Errorf("page %d: %w", s.page+1, err)
		}
		err = enc.Encode(ctx, audio.PadReader(rc, s.durationUs, p.SampleRate, p.Channels), p.SampleRate)
		// exit status is meaningless once the stream was cut
		rc.Close()
		if err != nil {
			return fmt.Errorf("page %d narration %s: %w", s.page+1, s.path, err)
		}
	}
	return nil
}
