package story

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/storyvideo/internal/motion"
)

const sampleStory = `version: "1.0"
title: River
pages:
  - image: pages/01.png
    text: "Once upon a time"
    duration_us: 2000000
    motion:
      preset: zoom-in
  - image: qr:https://example.org/credits
    audio: narration/02.wav
    motion:
      start: {x: 0, y: 0, w: 1, h: 1}
      end: {x: 0.25, y: 0.25, w: 0.5, h: 0.5}
      easing: ease-out
  - image: /abs/03.png
    duration_us: 1500000
video:
  width: 1920
  height: 1080
  fps: 25
  crossfade_us: 400000
`

func writeStory(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "story.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndCompile(t *testing.T) {
	path := writeStory(t, sampleStory)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.Title != "River" || len(s.Pages) != 3 {
		t.Fatalf("unexpected story: %+v", s)
	}
	if s.Video.FPS != 25 || s.Video.CrossFadeUs != 400_000 {
		t.Errorf("video settings not parsed: %+v", s.Video)
	}

	var probed []string
	pages, err := s.Compile(func(p string) (int64, error) {
		probed = append(probed, p)
		return 3_000_000, nil
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	dir := filepath.Dir(path)
	if pages[0].ImageRef != filepath.Join(dir, "pages/01.png") {
		t.Errorf("relative image not resolved: %s", pages[0].ImageRef)
	}
	if pages[1].ImageRef != "qr:https://example.org/credits" {
		t.Errorf("generated reference changed: %s", pages[1].ImageRef)
	}
	if pages[2].ImageRef != "/abs/03.png" {
		t.Errorf("absolute path changed: %s", pages[2].ImageRef)
	}

	if len(probed) != 1 || probed[0] != filepath.Join(dir, "narration/02.wav") {
		t.Errorf("expected one probe of the narration file, got %v", probed)
	}

	want := []int64{2_000_000, 3_000_000, 1_500_000}
	for i, d := range Durations(pages) {
		if d != want[i] {
			t.Errorf("page %d: expected duration %d, got %d", i, want[i], d)
		}
	}

	if pages[0].Effect == nil || pages[0].Effect.Easing != motion.EaseInOut {
		t.Errorf("preset effect not applied: %+v", pages[0].Effect)
	}
	if e := pages[1].Effect; e == nil || e.Easing != motion.EaseOut || e.End.W != 0.5 {
		t.Errorf("explicit effect not applied: %+v", e)
	}
	if pages[2].Effect != nil {
		t.Errorf("expected no effect on page 3")
	}
}

func TestLoadRejectsEmptyStory(t *testing.T) {
	path := writeStory(t, "version: \"1.0\"\npages: []\n")
	if _, err := Load(path); !errors.Is(err, ErrNoPages) {
		t.Errorf("expected ErrNoPages, got %v", err)
	}
}

func TestCompileWithoutDuration(t *testing.T) {
	s := &Story{Pages: []PageSpec{{Image: "a.png"}}}
	if _, err := s.Compile(nil); !errors.Is(err, ErrNoDuration) {
		t.Errorf("expected ErrNoDuration, got %v", err)
	}
}

func TestCompileBadMotion(t *testing.T) {
	tests := []struct {
		name string
		m    *Motion
	}{
		{"unknown preset", &Motion{Preset: "spin"}},
		{"bad viewport", &Motion{Start: &motion.Viewport{X: 0.8, Y: 0, W: 0.5, H: 0.5}}},
		{"bad easing", &Motion{Preset: "zoom-in", Easing: "bounce"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Story{Pages: []PageSpec{{Image: "a.png", DurationUs: 1, Motion: tt.m}}}
			if _, err := s.Compile(nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	s := &Story{
		Title: "Saved",
		Pages: []PageSpec{{Image: "a.png", Text: "hi", DurationUs: 1_000_000, Motion: &Motion{Preset: "pan-left"}}},
		Video: VideoSettings{FPS: 24},
	}
	if err := Save(s, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Version != Version || got.Pages[0].Motion.Preset != "pan-left" || got.Video.FPS != 24 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestScaffold(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"02.jpg", "01.png", "notes.txt", "03.JPEG"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	s, err := Scaffold(dir, dir, 4_000_000)
	if err != nil {
		t.Fatalf("Scaffold failed: %v", err)
	}
	if len(s.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(s.Pages))
	}
	if s.Pages[0].Image != "01.png" || s.Pages[2].Image != "03.JPEG" {
		t.Errorf("unexpected page order: %+v", s.Pages)
	}
	for i, p := range s.Pages {
		if p.Motion == nil || p.Motion.Preset == "static" || p.Motion.Preset == "" {
			t.Errorf("page %d: expected a moving preset, got %+v", i, p.Motion)
		}
	}

	if _, err := Scaffold(t.TempDir(), "", 1); !errors.Is(err, ErrNoPages) {
		t.Errorf("expected ErrNoPages for empty dir, got %v", err)
	}
}
