package video

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/image/draw"

	"github.com/ivlev/storyvideo/internal/compositor"
)

// Sink consumes composited frames in order.
type Sink interface {
	Begin(width, height, fps int) error
	WriteFrame(f compositor.Frame) error
	Close() error
}

// EncoderOptions select the H.264 encoder and its quality knob.
type EncoderOptions struct {
	FFmpegPath string
	Encoder    string // libx264, h264_nvenc, h264_videotoolbox
	Quality    int
}

// FFmpegSink pipes raw RGBA frames into an ffmpeg H.264 encoder.
type FFmpegSink struct {
	ctx  context.Context
	path string
	opts EncoderOptions

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	w      *bufio.Writer
	stderr bytes.Buffer
	stop   func() bool
	rect   image.Rectangle
}

func NewFFmpegSink(ctx context.Context, path string, opts EncoderOptions) *FFmpegSink {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.Encoder == "" {
		opts.Encoder = "libx264"
	}
	return &FFmpegSink{ctx: ctx, path: path, opts: opts}
}

func rawInputArgs(width, height, fps int) ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"f":            "rawvideo",
		"pixel_format": "rgba",
		"video_size":   fmt.Sprintf("%dx%d", width, height),
		"framerate":    fps,
	}
}

func encodeArgs(fps int, opts EncoderOptions) ffmpeg.KwArgs {
	args := ffmpeg.KwArgs{
		"r":       fps,
		"pix_fmt": "yuv420p",
		"c:v":     opts.Encoder,
	}

	// Качество в зависимости от энкодера
	switch opts.Encoder {
	case "h264_videotoolbox":
		args["b:v"] = fmt.Sprintf("%dk", opts.Quality*100)
	case "h264_nvenc":
		args["cq"] = opts.Quality
	default: // libx264
		args["crf"] = opts.Quality
		args["preset"] = "medium"
	}
	return args
}

func (s *FFmpegSink) Begin(width, height, fps int) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	s.rect = image.Rect(0, 0, width, height)
	cmd := ffmpeg.Input("pipe:0", rawInputArgs(width, height, fps)).
		Output(s.path, encodeArgs(fps, s.opts)).
		OverWriteOutput().
		SetFfmpegPath(s.opts.FFmpegPath).
		Compile()
	cmd.Stderr = &s.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}
	s.cmd, s.stdin = cmd, stdin
	s.w = bufio.NewWriterSize(stdin, width*height*4)
	s.stop = context.AfterFunc(s.ctx, func() { s.cmd.Process.Kill() })
	return nil
}

func (s *FFmpegSink) WriteFrame(f compositor.Frame) error {
	if s.w == nil {
		return fmt.Errorf("sink for %s not started", s.path)
	}
	if err := writeRawRGBA(s.w, f.Image, s.rect); err != nil {
		return fmt.Errorf("write raw error: %w (%s)", err, bytes.TrimSpace(s.stderr.Bytes()))
	}
	return nil
}

func (s *FFmpegSink) Close() error {
	if s.cmd == nil {
		return nil
	}
	s.w.Flush()
	s.stdin.Close()
	defer s.stop()
	if err := s.cmd.Wait(); err != nil {
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", err, bytes.TrimSpace(s.stderr.Bytes()))
	}
	return nil
}

// writeRawRGBA writes tightly packed RGBA rows of rect.
func writeRawRGBA(w io.Writer, img image.Image, rect image.Rectangle) error {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect != rect || rgba.Stride != rect.Dx()*4 {
		rgba = image.NewRGBA(rect)
		draw.Draw(rgba, rect, img, img.Bounds().Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}

// FramesSink writes every frame as dir/frame_000000.png.
type FramesSink struct {
	Dir string
	enc png.Encoder
	n   int
}

func NewFramesSink(dir string) *FramesSink {
	return &FramesSink{Dir: dir, enc: png.Encoder{CompressionLevel: png.BestSpeed}}
}

func (s *FramesSink) Begin(width, height, fps int) error {
	return os.MkdirAll(s.Dir, 0755)
}

func (s *FramesSink) WriteFrame(f compositor.Frame) error {
	path := filepath.Join(s.Dir, fmt.Sprintf("frame_%06d.png", f.Index))
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.enc.Encode(out, f.Image); err != nil {
		out.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	s.n++
	return out.Close()
}

func (s *FramesSink) Close() error {
	return nil
}

// Written is the number of frame files produced.
func (s *FramesSink) Written() int {
	return s.n
}
