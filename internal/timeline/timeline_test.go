package timeline

import (
	"math"
	"testing"
)

func TestClipCrossFade(t *testing.T) {
	tests := []struct {
		name       string
		durations  []int64
		requested  int64
		transition int64
		want       int64
	}{
		{"fits", []int64{2_000_000, 3_000_000}, 500_000, 0, 500_000},
		{"short page clips", []int64{2_000_000, 300_000, 3_000_000}, 500_000, 0, 300_000},
		{"audio transition adds slack", []int64{2_000_000, 300_000}, 500_000, 100_000, 400_000},
		{"shortest wins", []int64{400_000, 100_000, 200_000}, 1_000_000, 0, 100_000},
		{"empty keeps request", nil, 500_000, 0, 500_000},
		{"negative request", []int64{1_000_000}, -5, 0, 0},
		{"zero page", []int64{1_000_000, 0}, 500_000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClipCrossFade(tt.durations, tt.requested, tt.transition)
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCrossFadeInvariant(t *testing.T) {
	// 0 <= X_eff <= X_req and X_eff <= d_i + transition for every page.
	durations := []int64{1_700_000, 250_000, 4_000_000, 900_001, 33_333}
	for _, req := range []int64{0, 1, 10_000, 33_334, 500_000, 5_000_000} {
		for _, tr := range []int64{0, 20_000} {
			tl := Build(durations, req, tr)
			if tl.CrossFade < 0 || tl.CrossFade > req {
				t.Errorf("req %d: crossfade %d out of range", req, tl.CrossFade)
			}
			for i, d := range durations {
				if tl.CrossFade > d+tr {
					t.Errorf("req %d: crossfade %d exceeds page %d slack %d", req, tl.CrossFade, i, d+tr)
				}
				if w := tl.Window(i); w.VisibleDuration() < 0 {
					t.Errorf("req %d: page %d has negative visible window %+v", req, i, w)
				}
			}
		}
	}
}

func TestBuildWindows(t *testing.T) {
	tl := Build([]int64{2_000_000, 3_000_000, 1_000_000}, 500_000, 0)

	want := []Window{
		{AudioStart: 0, AudioEnd: 2_000_000, VisibleStart: 0, VisibleEnd: 2_250_000},
		{AudioStart: 2_000_000, AudioEnd: 5_000_000, VisibleStart: 1_750_000, VisibleEnd: 5_250_000},
		{AudioStart: 5_000_000, AudioEnd: 6_000_000, VisibleStart: 4_750_000, VisibleEnd: 6_000_000},
	}
	if tl.Len() != len(want) {
		t.Fatalf("expected %d windows, got %d", len(want), tl.Len())
	}
	for i, w := range want {
		if got := tl.Window(i); got != w {
			t.Errorf("window %d: expected %+v, got %+v", i, w, got)
		}
	}
	if tl.TotalDuration() != 6_000_000 {
		t.Errorf("expected total 6000000, got %d", tl.TotalDuration())
	}
	if tl.TransitionStart(0) != tl.Window(1).VisibleStart {
		t.Errorf("transition start %d should equal next visible start %d", tl.TransitionStart(0), tl.Window(1).VisibleStart)
	}
}

func TestBuildOddCrossFadeKeepsExactRamp(t *testing.T) {
	tl := Build([]int64{1_000_000, 1_000_000}, 333_333, 0)
	w0, w1 := tl.Window(0), tl.Window(1)
	if got := w0.VisibleEnd - w1.VisibleStart; got != tl.CrossFade {
		t.Errorf("overlap %d, expected %d", got, tl.CrossFade)
	}
}

func TestAudioTransitionExtendsPages(t *testing.T) {
	tl := Build([]int64{1_000_000, 1_000_000}, 0, 250_000)
	if got := tl.Window(1).AudioStart; got != 1_250_000 {
		t.Errorf("expected second page at 1250000, got %d", got)
	}
	if got := tl.TotalDuration(); got != 2_500_000 {
		t.Errorf("expected total 2500000, got %d", got)
	}
}

func TestAlphaRamp(t *testing.T) {
	tl := Build([]int64{2_000_000, 3_000_000}, 500_000, 0)
	start := tl.TransitionStart(0)

	tests := []struct {
		cTime int64
		want  float64
	}{
		{start - 1, 0},
		{start, 0},
		{start + 125_000, 0.25},
		{start + 250_000, 0.5},
		{start + 500_000, 1},
		{start + 900_000, 1},
	}
	for _, tt := range tests {
		if got := tl.Alpha(0, tt.cTime); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("alpha at %d: expected %.3f, got %.3f", tt.cTime, tt.want, got)
		}
	}
}

func TestLeadInFade(t *testing.T) {
	tl := Build([]int64{2_000_000}, 500_000, 0)
	if got := tl.TransitionStart(-1); got != -250_000 {
		t.Errorf("lead-in fade should start at -250000, got %d", got)
	}
	if got := tl.VisibleEnd(-1); got != 250_000 {
		t.Errorf("lead-in should end at 250000, got %d", got)
	}
	if got := tl.Alpha(-1, 0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("lead-in alpha at 0: expected 0.5, got %f", got)
	}
}

func TestZeroCrossFadeAlpha(t *testing.T) {
	tl := Build([]int64{1_000_000, 1_000_000}, 0, 0)
	if got := tl.Alpha(0, tl.TransitionStart(0)); got != 1 {
		t.Errorf("expected hard cut alpha 1, got %f", got)
	}
}

func TestFrameTime(t *testing.T) {
	tests := []struct {
		index int64
		fps   int
		want  int64
	}{
		{0, 30, 0},
		{1, 30, 33_333},
		{3, 30, 100_000},
		{30, 30, 1_000_000},
		{29_999, 30, 999_966_666},
		{7, 24, 291_666},
	}
	for _, tt := range tests {
		if got := FrameTime(tt.index, tt.fps); got != tt.want {
			t.Errorf("FrameTime(%d, %d) = %d, expected %d", tt.index, tt.fps, got, tt.want)
		}
	}
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		name      string
		durations []int64
		fps       int
		want      int
	}{
		// Frames 0..150 inclusive: the frame at exactly 5s is still drawn.
		{"two pages", []int64{2_000_000, 3_000_000}, 30, 151},
		{"fraction", []int64{1_010_000}, 30, 31},
		{"empty", nil, 30, 0},
		{"zero length", []int64{0}, 30, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := Build(tt.durations, 500_000, 0)
			if got := tl.FrameCount(tt.fps); got != tt.want {
				t.Errorf("expected %d frames, got %d", tt.want, got)
			}
		})
	}
}

func TestPosition(t *testing.T) {
	tl := Build([]int64{2_000_000, 3_000_000}, 500_000, 0)
	w := tl.Window(1)
	if got := tl.Position(1, w.VisibleStart); got != 0 {
		t.Errorf("expected 0 at visible start, got %f", got)
	}
	if got := tl.Position(1, w.VisibleEnd); got != 1 {
		t.Errorf("expected 1 at visible end, got %f", got)
	}
	if got := tl.Position(1, 0); got != 0 {
		t.Errorf("expected clamp to 0 before window, got %f", got)
	}
}
