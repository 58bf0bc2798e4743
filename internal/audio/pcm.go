package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const bytesPerSample = 2 // s16le

// PCMBytes is the size of durationUs of s16le PCM, rounded down to whole
// sample frames.
func PCMBytes(durationUs int64, sampleRate, channels int) int64 {
	if durationUs <= 0 {
		return 0
	}
	frames := durationUs * int64(sampleRate) / 1_000_000
	return frames * int64(bytesPerSample*channels)
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// Silence yields durationUs of digital silence.
func Silence(durationUs int64, sampleRate, channels int) io.Reader {
	return io.LimitReader(zeros{}, PCMBytes(durationUs, sampleRate, channels))
}

// PadReader trims or pads r with silence to exactly durationUs.
func PadReader(r io.Reader, durationUs int64, sampleRate, channels int) io.Reader {
	return io.LimitReader(io.MultiReader(r, zeros{}), PCMBytes(durationUs, sampleRate, channels))
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns the duration of a media file in microseconds.
func ProbeDuration(path string) (int64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("audio file not found: %s", path)
	}
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbeDuration(out)
}

func parseProbeDuration(out string) (int64, error) {
	var probe probeOutput
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", probe.Format.Duration, err)
	}
	return int64(math.Round(seconds * 1_000_000)), nil
}

type pcmStream struct {
	io.ReadCloser
	cmd    *exec.Cmd
	stderr bytes.Buffer
	stop   func() bool
}

func (s *pcmStream) Close() error {
	s.stop()
	s.ReadCloser.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg decode: %w (%s)", err, bytes.TrimSpace(s.stderr.Bytes()))
	}
	return nil
}

// DecodePCM decodes any audio file ffmpeg can read into s16le PCM at the
// given rate and channel count. Closing the stream waits for ffmpeg.
func DecodePCM(ctx context.Context, path, ffmpegPath string, sampleRate, channels int) (io.ReadCloser, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	cmd := ffmpeg.Input(path).
		Output("pipe:1", ffmpeg.KwArgs{
			"vn":     "",
			"f":      "s16le",
			"acodec": "pcm_s16le",
			"ar":     sampleRate,
			"ac":     channels,
		}).
		SetFfmpegPath(ffmpegPath).
		Compile()

	s := &pcmStream{cmd: cmd}
	cmd.Stderr = &s.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	s.ReadCloser = stdout
	s.stop = context.AfterFunc(ctx, func() { cmd.Process.Kill() })
	return s, nil
}
