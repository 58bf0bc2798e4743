package audio

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var ErrMuxerState = errors.New("muxer used out of order")

// adtsMuxer writes ADTS frames to a file unchanged.
type adtsMuxer struct {
	path    string
	f       *os.File
	w       *bufio.Writer
	tracks  int
	started bool
	samples int
}

func newADTSMuxer(path string) (*adtsMuxer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &adtsMuxer{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func (m *adtsMuxer) AddTrack(f TrackFormat) (int, error) {
	if m.started {
		return 0, fmt.Errorf("add track after start: %w", ErrMuxerState)
	}
	if f.Codec != "aac" {
		return 0, fmt.Errorf("adts cannot carry %s", f.Codec)
	}
	if m.tracks > 0 {
		return 0, errors.New("adts holds a single track")
	}
	m.tracks++
	return 0, nil
}

func (m *adtsMuxer) Start() error {
	if m.tracks == 0 {
		return fmt.Errorf("start without track: %w", ErrMuxerState)
	}
	m.started = true
	return nil
}

func (m *adtsMuxer) WriteSample(track int, buf OutputBuffer) error {
	if !m.started || track != 0 {
		return fmt.Errorf("write to track %d: %w", track, ErrMuxerState)
	}
	m.samples++
	_, err := m.w.Write(buf.Data)
	return err
}

func (m *adtsMuxer) Stop() error {
	return errors.Join(m.w.Flush(), m.f.Close())
}

// containerMuxer collects ADTS frames in a side file and remuxes them into
// the target container with ffmpeg on Stop.
type containerMuxer struct {
	*adtsMuxer
	ffmpegPath string
	target     string
}

func (m *containerMuxer) Stop() error {
	if err := m.adtsMuxer.Stop(); err != nil {
		return err
	}
	defer os.Remove(m.adtsMuxer.path)

	if m.adtsMuxer.samples == 0 {
		return fmt.Errorf("no audio encoded for %s", m.target)
	}
	err := ffmpeg.Input(m.adtsMuxer.path, ffmpeg.KwArgs{"f": "aac"}).
		Output(m.target, ffmpeg.KwArgs{"c:a": "copy", "movflags": "+faststart"}).
		OverWriteOutput().
		SetFfmpegPath(m.ffmpegPath).
		Run()
	if err != nil {
		return fmt.Errorf("remux %s: %w", m.target, err)
	}
	return nil
}

// FileMuxer picks a muxer by output extension: .aac and .adts are written
// directly, anything else (m4a, mp4) is remuxed by ffmpeg.
func FileMuxer(ffmpegPath string) MuxerFactory {
	return func(path string) (Muxer, error) {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".aac", ".adts":
			return newADTSMuxer(path)
		}
		side, err := newADTSMuxer(path + ".adts")
		if err != nil {
			return nil, err
		}
		return &containerMuxer{adtsMuxer: side, ffmpegPath: ffmpegPath, target: path}, nil
	}
}
