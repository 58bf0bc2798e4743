package system

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

var ErrNoFFmpeg = errors.New("ffmpeg not found")

// CheckFFmpeg resolves the ffmpeg binary.
func CheckFFmpeg(ffmpegPath string) (string, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	p, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoFFmpeg, ffmpegPath)
	}
	return p, nil
}

var (
	encoderOnce sync.Once
	encoderName string
)

// GetBestH264Encoder returns the preferred available H.264 encoder. The
// encoder list is queried once per process.
func GetBestH264Encoder(ffmpegPath string) string {
	encoderOnce.Do(func() {
		out, err := exec.Command(ffmpegPath, "-hide_banner", "-encoders").CombinedOutput()
		if err != nil {
			encoderName = "libx264"
			return
		}
		encoderName = pickEncoder(string(out))
	})
	return encoderName
}

// pickEncoder chooses from `ffmpeg -encoders` output. Priority: VideoToolbox
// (macOS), NVENC (NVIDIA), then software x264.
func pickEncoder(encoders string) string {
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(encoders, " "+name+" ") {
			return name
		}
	}
	return "libx264"
}

// RunContext runs cmd and kills it when ctx is cancelled.
func RunContext(ctx context.Context, cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	return WaitContext(ctx, cmd)
}

// WaitContext waits for a started cmd, killing it when ctx is cancelled.
func WaitContext(ctx context.Context, cmd *exec.Cmd) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
		return ctx.Err()
	}
}
