// Package video moves composited frames into an encoder or onto disk and
// joins the result with the narration track.
package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivlev/storyvideo/internal/compositor"
)

var ErrNonMonotonic = errors.New("frame timestamps not increasing")

// Producer is the pull side of a compositor.
type Producer interface {
	Next() (compositor.Frame, bool)
	Done() bool
	FPS() int
}

type Stats struct {
	Frames  int
	LastPTS int64
	Elapsed time.Duration
}

// FPS is the achieved render speed.
func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

// Drive pulls p until it is done and writes every frame to sink. The sink is
// begun on the first frame and always closed.
func Drive(ctx context.Context, p Producer, sink Sink) (stats Stats, err error) {
	start := time.Now()
	stats.LastPTS = -1
	begun := false
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close sink: %w", cerr)
		}
		stats.Elapsed = time.Since(start)
	}()

	for !p.Done() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		f, ok := p.Next()
		if !ok {
			break
		}
		if f.PTS <= stats.LastPTS {
			return stats, fmt.Errorf("frame %d at %dus after %dus: %w", f.Index, f.PTS, stats.LastPTS, ErrNonMonotonic)
		}
		if !begun {
			b := f.Image.Bounds()
			if err := sink.Begin(b.Dx(), b.Dy(), p.FPS()); err != nil {
				return stats, fmt.Errorf("begin sink: %w", err)
			}
			begun = true
		}
		if err := sink.WriteFrame(f); err != nil {
			return stats, fmt.Errorf("frame %d: %w", f.Index, err)
		}
		stats.Frames++
		stats.LastPTS = f.PTS
	}
	return stats, nil
}
