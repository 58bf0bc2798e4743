// Package compositor renders a story into frames.
//
// A Compositor is pulled once per output frame by a video driver. Each pull
// computes the frame's presentation time from its index, advances the page
// cursor, and draws the current page plus the next page while it fades in.
// It is single-threaded: Next must not be called concurrently.
package compositor

import (
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"

	"github.com/ivlev/storyvideo/internal/imagecache"
	"github.com/ivlev/storyvideo/internal/overlay"
	"github.com/ivlev/storyvideo/internal/source"
	"github.com/ivlev/storyvideo/internal/story"
	"github.com/ivlev/storyvideo/internal/system"
	"github.com/ivlev/storyvideo/internal/timeline"
)

var ErrInvalidOptions = errors.New("invalid compositor options")

// Options configure a compositor. Caption is a template: its Width and
// Height are overwritten with the frame size.
type Options struct {
	Width, Height     int
	FPS               int
	CrossFadeUs       int64
	AudioTransitionUs int64
	Provider          source.Provider // nil draws every page as a plain frame
	Caption           overlay.Options
	Scaler            draw.Scaler // nil selects ApproxBiLinear
	Logger            zerolog.Logger
}

// Frame is one composited picture. Image is reused by the next pull; copy it
// to keep it.
type Frame struct {
	Image *image.RGBA
	PTS   int64 // microseconds
	Index int
}

type pageOverlay struct {
	page int
	ov   *overlay.TextOverlay
}

type Compositor struct {
	pages []story.Page
	opts  Options
	tl    timeline.Timeline
	log   zerolog.Logger

	state      State
	frameIndex int
	current    *pageOverlay
	next       *pageOverlay

	cache   *imagecache.Cache
	warned  map[string]bool
	surface *image.RGBA
	scratch *image.RGBA
	scaler  draw.Scaler
}

// New lays out the timeline for pages. An empty page list is valid and
// produces no frames.
func New(pages []story.Page, opts Options) (*Compositor, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("frame size %dx%d: %w", opts.Width, opts.Height, ErrInvalidOptions)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("fps %d: %w", opts.FPS, ErrInvalidOptions)
	}

	c := &Compositor{
		pages:  pages,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "compositor").Logger(),
		state:  State{Kind: BeforeFirst},
		warned: make(map[string]bool),
		scaler: opts.Scaler,
	}
	if c.scaler == nil {
		c.scaler = draw.ApproxBiLinear
	}
	c.opts.Caption.Width = opts.Width
	c.opts.Caption.Height = opts.Height

	c.tl = timeline.Build(story.Durations(pages), opts.CrossFadeUs, opts.AudioTransitionUs)
	if c.tl.CrossFade != opts.CrossFadeUs {
		c.log.Info().
			Int64("requested_us", opts.CrossFadeUs).
			Int64("effective_us", c.tl.CrossFade).
			Msg("cross-fade clipped to the shortest page")
	}

	c.cache = imagecache.New(c.loadImage, imagecache.DefaultCapacity)
	c.cache.OnError = func(ref string, err error) {
		c.log.Warn().Err(err).Str("ref", ref).Msg("image decode failed, drawing plain frame")
	}

	bounds := image.Rect(0, 0, opts.Width, opts.Height)
	c.surface = system.GetImage(bounds)
	c.scratch = system.GetImage(bounds)

	if len(pages) > 0 {
		c.next = c.buildOverlay(0)
	}
	return c, nil
}

func (c *Compositor) loadImage(ref string) (image.Image, error) {
	if c.opts.Provider == nil {
		return nil, nil
	}
	img, err := c.opts.Provider.Image(ref)
	if err == nil && img == nil && !c.warned[ref] {
		c.warned[ref] = true
		c.log.Warn().Str("ref", ref).Msg("image not found, drawing plain frame")
	}
	return img, err
}

func (c *Compositor) buildOverlay(page int) *pageOverlay {
	if page < 0 || page >= len(c.pages) || c.pages[page].Text == "" {
		return &pageOverlay{page: page}
	}
	return &pageOverlay{page: page, ov: overlay.New(c.pages[page].Text, c.opts.Caption)}
}

// enter updates the cached overlays for a newly entered state.
func (c *Compositor) enter(s State) {
	if s.Kind != OnPage {
		c.current, c.next = nil, nil
		return
	}
	if c.next != nil && c.next.page == s.Page {
		c.current = c.next
	} else {
		c.current = c.buildOverlay(s.Page)
	}
	c.next = nil
	if s.Page+1 < len(c.pages) {
		c.next = c.buildOverlay(s.Page + 1)
	}

	w := c.tl.Window(s.Page)
	c.log.Debug().
		Int("page", s.Page).
		Int64("audio_start_us", w.AudioStart).
		Int64("audio_end_us", w.AudioEnd).
		Int64("visible_start_us", w.VisibleStart).
		Int64("visible_end_us", w.VisibleEnd).
		Msg("page entered")
}

// Next produces the next frame. It returns ok=false once the last page has
// been shown; every later call returns ok=false as well.
func (c *Compositor) Next() (Frame, bool) {
	if c.state.Kind == Done {
		return Frame{}, false
	}

	cTime := timeline.FrameTime(int64(c.frameIndex), c.opts.FPS)
	s, changed := advance(&c.tl, c.state, cTime)
	if changed {
		c.enter(s)
	}
	c.state = s
	if s.Kind == Done {
		c.log.Debug().Int("frames", c.frameIndex).Msg("story finished")
		return Frame{}, false
	}

	c.drawFrame(cTime)

	f := Frame{Image: c.surface, PTS: cTime, Index: c.frameIndex}
	c.frameIndex++
	return f, true
}

// Done reports whether the cursor has advanced past the last page.
func (c *Compositor) Done() bool {
	return c.state.Kind == Done
}

// State returns the cursor state of the last pull.
func (c *Compositor) State() State {
	return c.state
}

// Timeline exposes the page timing the compositor uses.
func (c *Compositor) Timeline() timeline.Timeline {
	return c.tl
}

// FrameCount is the number of frames Next will produce in total.
func (c *Compositor) FrameCount() int {
	return c.tl.FrameCount(c.opts.FPS)
}

// CacheLen is the number of resident image cache entries.
func (c *Compositor) CacheLen() int {
	return c.cache.Len()
}

// Close releases cached images and frame surfaces. Frames returned earlier
// must not be used afterwards.
func (c *Compositor) Close() error {
	c.cache.Clear()
	system.PutImage(c.surface)
	system.PutImage(c.scratch)
	c.surface, c.scratch = nil, nil
	c.state = State{Kind: Done}
	return nil
}

// FPS is the output frame rate.
func (c *Compositor) FPS() int {
	return c.opts.FPS
}
