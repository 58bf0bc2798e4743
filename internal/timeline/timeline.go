// Package timeline computes when each story page is heard and seen.
//
// All times are integer microseconds. Page i owns the audio span
// [AudioStart, AudioEnd); its picture is visible from half a cross-fade
// before the audio starts until half a cross-fade after it ends, except that
// the first page has no pre-roll and the last page has no post-roll.
package timeline

// Microsecond constants used by frame timing.
const (
	Second int64 = 1_000_000
)

// Window is the timing of a single page.
type Window struct {
	AudioStart   int64
	AudioEnd     int64
	VisibleStart int64
	VisibleEnd   int64
}

// VisibleDuration is the span during which the page is drawn.
func (w Window) VisibleDuration() int64 {
	return w.VisibleEnd - w.VisibleStart
}

// Timeline is the result of Build. It is immutable.
type Timeline struct {
	// Requested is the cross-fade the caller asked for.
	Requested int64
	// CrossFade is the effective cross-fade after clipping.
	CrossFade int64
	// AudioTransition is the silence inserted after every page's narration.
	AudioTransition int64

	windows []Window
}

// Build clips the requested cross-fade so that no page is shorter than its
// transition and lays the pages out back to back.
//
// durations are per-page narration lengths; every page occupies
// duration+audioTransition of the audio track.
func Build(durations []int64, crossFade, audioTransition int64) Timeline {
	if audioTransition < 0 {
		audioTransition = 0
	}
	tl := Timeline{
		Requested:       crossFade,
		CrossFade:       ClipCrossFade(durations, crossFade, audioTransition),
		AudioTransition: audioTransition,
		windows:         make([]Window, len(durations)),
	}

	pre, post := tl.halves()
	var cursor int64
	last := len(durations) - 1
	for i, d := range durations {
		if d < 0 {
			d = 0
		}
		w := Window{AudioStart: cursor, AudioEnd: cursor + d + audioTransition}
		w.VisibleStart = w.AudioStart
		if i > 0 {
			w.VisibleStart -= pre
		}
		w.VisibleEnd = w.AudioEnd
		if i < last {
			w.VisibleEnd += post
		}
		tl.windows[i] = w
		cursor = w.AudioEnd
	}
	return tl
}

// ClipCrossFade returns min(requested, min_i(d_i + audioTransition)),
// never negative. An empty page list keeps the request.
func ClipCrossFade(durations []int64, requested, audioTransition int64) int64 {
	x := requested
	for _, d := range durations {
		if d < 0 {
			d = 0
		}
		if slack := d + audioTransition; x > slack {
			x = slack
		}
	}
	if x < 0 {
		x = 0
	}
	return x
}

// halves splits the cross-fade into the part before and after a page
// boundary; pre+post is exactly CrossFade.
func (t Timeline) halves() (pre, post int64) {
	pre = t.CrossFade / 2
	return pre, t.CrossFade - pre
}

// Len is the number of pages.
func (t Timeline) Len() int {
	return len(t.windows)
}

// Window returns the timing of page i.
func (t Timeline) Window(i int) Window {
	return t.windows[i]
}

// Windows returns a copy of all page windows.
func (t Timeline) Windows() []Window {
	out := make([]Window, len(t.windows))
	copy(out, t.windows)
	return out
}

// VisibleEnd is the last visible moment of page i. Index -1 stands for the
// black lead-in before the first page, which ends when the first fade-in
// completes.
func (t Timeline) VisibleEnd(i int) int64 {
	if i < 0 {
		_, post := t.halves()
		return post
	}
	return t.windows[i].VisibleEnd
}

// TransitionStart is the moment page i+1 begins fading in over page i.
// For i == -1 this is the start of the fade-in from black, which lies half a
// cross-fade before zero.
func (t Timeline) TransitionStart(i int) int64 {
	pre, _ := t.halves()
	if i < 0 {
		return -pre
	}
	return t.windows[i].AudioEnd - pre
}

// Alpha of page i+1 drawn over page i at cTime: a linear ramp from 0 at
// TransitionStart(i) to 1 a cross-fade later.
func (t Timeline) Alpha(i int, cTime int64) float64 {
	if t.CrossFade <= 0 {
		return 1
	}
	a := float64(cTime-t.TransitionStart(i)) / float64(t.CrossFade)
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

// Position of cTime inside page i's visible window, in [0,1].
func (t Timeline) Position(i int, cTime int64) float64 {
	w := t.windows[i]
	dur := w.VisibleDuration()
	if dur <= 0 {
		return 0
	}
	p := float64(cTime-w.VisibleStart) / float64(dur)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// TotalDuration is the end of the last page's audio, which is the end of the
// video.
func (t Timeline) TotalDuration() int64 {
	if len(t.windows) == 0 {
		return 0
	}
	return t.windows[len(t.windows)-1].AudioEnd
}

// FrameTime is the presentation timestamp of frame index at fps, computed
// without accumulating rounding error.
func FrameTime(index int64, fps int) int64 {
	return index * Second / int64(fps)
}

// FrameCount is the number of frames a compositor produces for this
// timeline: every frame whose timestamp does not exceed TotalDuration.
func (t Timeline) FrameCount(fps int) int {
	if len(t.windows) == 0 || fps <= 0 {
		return 0
	}
	// Smallest k with FrameTime(k) > total, i.e. ceil((total+1)*fps / 1e6).
	n := (t.TotalDuration() + 1) * int64(fps)
	return int((n + Second - 1) / Second)
}
