package video

import (
	"bytes"
	"context"
	"fmt"
	"os"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ivlev/storyvideo/internal/system"
)

func muxArgs() ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"c:v":      "copy",
		"c:a":      "copy",
		"shortest": "",
		"movflags": "+faststart",
	}
}

// Mux joins a video-only file and an audio file into out without
// re-encoding.
func Mux(ctx context.Context, videoPath, audioPath, out, ffmpegPath string) error {
	for _, p := range []string{videoPath, audioPath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("mux input not found: %s", p)
		}
	}

	v := ffmpeg.Input(videoPath)
	a := ffmpeg.Input(audioPath)
	cmd := ffmpeg.Output([]*ffmpeg.Stream{v.Video(), a.Audio()}, out, muxArgs()).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		Compile()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := system.RunContext(ctx, cmd); err != nil {
		return fmt.Errorf("ffmpeg mux error: %w, output: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
