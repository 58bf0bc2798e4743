package video

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/storyvideo/internal/compositor"
)

type fakeProducer struct {
	pts  []int64
	pos  int
	fps  int
	size image.Rectangle
}

func (p *fakeProducer) Next() (compositor.Frame, bool) {
	if p.pos >= len(p.pts) {
		return compositor.Frame{}, false
	}
	img := image.NewRGBA(p.size)
	img.Set(0, 0, color.RGBA{R: uint8(p.pos), A: 255})
	f := compositor.Frame{Image: img, PTS: p.pts[p.pos], Index: p.pos}
	p.pos++
	return f, true
}

func (p *fakeProducer) Done() bool { return p.pos >= len(p.pts) }
func (p *fakeProducer) FPS() int   { return p.fps }

type recordingSink struct {
	begun       int
	w, h, fps   int
	frames      []int
	closed      int
	failOnWrite int
}

func (s *recordingSink) Begin(w, h, fps int) error {
	s.begun++
	s.w, s.h, s.fps = w, h, fps
	return nil
}

func (s *recordingSink) WriteFrame(f compositor.Frame) error {
	if s.failOnWrite > 0 && len(s.frames)+1 == s.failOnWrite {
		return errors.New("disk full")
	}
	s.frames = append(s.frames, f.Index)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed++
	return nil
}

func producer(n int) *fakeProducer {
	p := &fakeProducer{fps: 25, size: image.Rect(0, 0, 8, 6)}
	for i := 0; i < n; i++ {
		p.pts = append(p.pts, int64(i)*40_000)
	}
	return p
}

func TestDrive(t *testing.T) {
	sink := &recordingSink{}
	stats, err := Drive(context.Background(), producer(10), sink)
	if err != nil {
		t.Fatalf("Drive failed: %v", err)
	}
	if stats.Frames != 10 || stats.LastPTS != 360_000 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if sink.begun != 1 || sink.w != 8 || sink.h != 6 || sink.fps != 25 {
		t.Errorf("sink begun %d times with %dx%d@%d", sink.begun, sink.w, sink.h, sink.fps)
	}
	if len(sink.frames) != 10 || sink.closed != 1 {
		t.Errorf("sink got %d frames, closed %d times", len(sink.frames), sink.closed)
	}
}

func TestDriveRejectsNonMonotonicPTS(t *testing.T) {
	p := producer(3)
	p.pts[2] = p.pts[1]
	sink := &recordingSink{}
	_, err := Drive(context.Background(), p, sink)
	if !errors.Is(err, ErrNonMonotonic) {
		t.Errorf("expected ErrNonMonotonic, got %v", err)
	}
	if sink.closed != 1 {
		t.Error("sink not closed on error")
	}
}

func TestDriveWriteError(t *testing.T) {
	sink := &recordingSink{failOnWrite: 4}
	stats, err := Drive(context.Background(), producer(10), sink)
	if err == nil {
		t.Fatal("expected write error")
	}
	if stats.Frames != 3 {
		t.Errorf("expected 3 frames before the failure, got %d", stats.Frames)
	}
}

func TestDriveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &recordingSink{}
	if _, err := Drive(ctx, producer(5), sink); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if sink.begun != 0 {
		t.Error("cancelled drive should not begin the sink")
	}
}

func TestFramesSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	sink := NewFramesSink(dir)
	if _, err := Drive(context.Background(), producer(3), sink); err != nil {
		t.Fatalf("Drive failed: %v", err)
	}
	if sink.Written() != 3 {
		t.Errorf("expected 3 frames written, got %d", sink.Written())
	}

	f, err := os.Open(filepath.Join(dir, "frame_000002.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 8, 6) {
		t.Errorf("unexpected frame bounds %v", img.Bounds())
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 != 2 {
		t.Errorf("expected frame 2 marker, got r=%d", r>>8)
	}
}

func TestEncodeArgs(t *testing.T) {
	tests := []struct {
		encoder string
		key     string
		want    any
	}{
		{"libx264", "crf", 23},
		{"h264_nvenc", "cq", 23},
		{"h264_videotoolbox", "b:v", "2300k"},
	}
	for _, tt := range tests {
		t.Run(tt.encoder, func(t *testing.T) {
			args := encodeArgs(30, EncoderOptions{Encoder: tt.encoder, Quality: 23})
			if args[tt.key] != tt.want {
				t.Errorf("expected %s=%v, got %v", tt.key, tt.want, args[tt.key])
			}
			if args["c:v"] != tt.encoder || args["pix_fmt"] != "yuv420p" {
				t.Errorf("unexpected args %v", args)
			}
		})
	}

	in := rawInputArgs(1280, 720, 30)
	if in["video_size"] != "1280x720" || in["pixel_format"] != "rgba" {
		t.Errorf("unexpected input args %v", in)
	}
}

func TestWriteRawRGBA(t *testing.T) {
	rect := image.Rect(0, 0, 2, 2)
	img := image.NewNRGBA(rect)
	img.Set(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	var buf bytes.Buffer
	if err := writeRawRGBA(&buf, img, rect); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 16 {
		t.Fatalf("expected 16 bytes, got %d", buf.Len())
	}
	if got := buf.Bytes()[12:]; !bytes.Equal(got, []byte{10, 20, 30, 255}) {
		t.Errorf("unexpected last pixel %v", got)
	}
}

func TestMuxMissingInput(t *testing.T) {
	dir := t.TempDir()
	err := Mux(context.Background(), filepath.Join(dir, "v.mp4"), filepath.Join(dir, "a.m4a"), filepath.Join(dir, "out.mp4"), "ffmpeg")
	if err == nil {
		t.Error("expected error for missing inputs")
	}
}
