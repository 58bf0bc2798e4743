package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/storyvideo/internal/audio"
	"github.com/ivlev/storyvideo/internal/system"
)

// rawPCMExts are read as s16le at the given sample rate without decoding.
var rawPCMExts = map[string]bool{".pcm": true, ".raw": true, ".s16le": true}

func newEncodeAudioCmd(g *globals) *cobra.Command {
	var (
		output string
		ffmpeg string
		format = audio.DefaultFormat()
	)
	cmd := &cobra.Command{
		Use:   "encode-audio <pcm-or-audio>",
		Short: "Encode a narration file to AAC",
		Long: `Encode an audio file, or raw 16-bit little-endian PCM (.pcm, .raw),
into AAC. The output is an ADTS stream for .aac and an mp4 container otherwise.

Examples:
  storyvideo encode-audio narration.wav -o narration.m4a
  storyvideo encode-audio voice.pcm --sample-rate 16000 -o voice.aac`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			input := args[0]
			if output == "" {
				output = strings.TrimSuffix(input, filepath.Ext(input)) + ".m4a"
			}
			if !cmd.Flags().Changed("ffmpeg") {
				if p := os.Getenv(EnvFFmpeg); p != "" {
					ffmpeg = p
				}
			}
			path, err := system.CheckFFmpeg(ffmpeg)
			if err != nil {
				return err
			}

			start := time.Now()
			fmt.Fprintf(cmd.OutOrStdout(), "[*] Encoding %s -> %s (%s, %d Hz, %d ch, %d bit/s)\n",
				input, output, format.Profile, format.SampleRate, format.Channels, format.BitRate)

			var src io.ReadCloser
			if rawPCMExts[strings.ToLower(filepath.Ext(input))] {
				src, err = os.Open(input)
			} else {
				src, err = audio.DecodePCM(cmd.Context(), input, path, format.SampleRate, format.Channels)
			}
			if err != nil {
				return err
			}
			defer src.Close()

			enc := audio.NewEncoder(format, audio.FFmpegCodec(path), audio.FileMuxer(path))
			enc.Log = g.logger
			enc.SetOutputPath(output)
			if err := enc.Prepare(); err != nil {
				return err
			}
			defer func() {
				if serr := enc.Stop(); serr != nil {
					err = errors.Join(err, serr)
				}
				if err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "[+++] Done in %.2fs: %s\n", time.Since(start).Seconds(), output)
				}
			}()

			return enc.Encode(cmd.Context(), src, format.SampleRate)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: input name with .m4a)")
	cmd.Flags().StringVar(&ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary")
	cmd.Flags().IntVar(&format.SampleRate, "sample-rate", format.SampleRate, "Sample rate in Hz")
	cmd.Flags().IntVar(&format.Channels, "channels", format.Channels, "Number of channels (1=mono, 2=stereo)")
	cmd.Flags().IntVar(&format.BitRate, "bitrate", format.BitRate, "Bit rate in bit/s")
	return cmd
}
