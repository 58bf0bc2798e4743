package audio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const (
	defaultSlots    = 4
	defaultSlotSize = 8192
	aacFrameSamples = 1024
)

// ffmpegCodec encodes s16le PCM to AAC ADTS in an ffmpeg subprocess. Input
// slots are written to its stdin; ADTS frames read from its stdout become
// output buffers.
type ffmpegCodec struct {
	format Format
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	free chan InputSlot

	mu        sync.Mutex
	pending   []OutputBuffer
	readDone  bool
	readErr   error
	signal    chan struct{}
	announced bool
	frames    int64

	closeOnce sync.Once
	readerWG  sync.WaitGroup
}

// FFmpegCodec returns a factory that starts ffmpegPath for each encoder.
func FFmpegCodec(ffmpegPath string) CodecFactory {
	return func(f Format) (Codec, error) {
		return startFFmpegCodec(ffmpegPath, f, defaultSlots, defaultSlotSize)
	}
}

func encodeArgs(f Format) (ffmpeg.KwArgs, ffmpeg.KwArgs) {
	in := ffmpeg.KwArgs{
		"f":  "s16le",
		"ar": f.SampleRate,
		"ac": f.Channels,
	}
	out := ffmpeg.KwArgs{
		"c:a": "aac",
		"b:a": f.BitRate,
		"ar":  f.SampleRate,
		"ac":  f.Channels,
		"f":   "adts",
	}
	if f.Profile != "" {
		out["profile:a"] = f.Profile
	}
	return in, out
}

func startFFmpegCodec(ffmpegPath string, f Format, slots, slotSize int) (*ffmpegCodec, error) {
	in, out := encodeArgs(f)
	cmd := ffmpeg.Input("pipe:0", in).
		Output("pipe:1", out).
		SetFfmpegPath(ffmpegPath).
		Compile()

	c := &ffmpegCodec{
		format: f,
		cmd:    cmd,
		free:   make(chan InputSlot, slots),
		signal: make(chan struct{}, 1),
	}
	cmd.Stderr = &c.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	c.stdin = stdin

	for i := 0; i < slots; i++ {
		c.free <- InputSlot{Index: i, Buf: make([]byte, slotSize)}
	}

	c.readerWG.Add(1)
	go c.readFrames(stdout)
	return c, nil
}

func (c *ffmpegCodec) readFrames(r io.Reader) {
	defer c.readerWG.Done()
	br := bufio.NewReader(r)
	for {
		frame, err := readADTSFrame(br)
		c.mu.Lock()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.readErr = err
				// keep ffmpeg from blocking on a full stdout
				go io.Copy(io.Discard, br)
			}
			c.readDone = true
			c.mu.Unlock()
			c.notify()
			return
		}
		pts := c.frames * aacFrameSamples * 1_000_000 / int64(c.format.SampleRate)
		c.frames++
		c.pending = append(c.pending, OutputBuffer{Data: frame, PTS: pts})
		c.mu.Unlock()
		c.notify()
	}
}

func (c *ffmpegCodec) notify() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

func (c *ffmpegCodec) DequeueInput(timeout time.Duration) (InputSlot, SlotStatus, error) {
	select {
	case s := <-c.free:
		return s, SlotReady, nil
	case <-time.After(timeout):
		return InputSlot{}, SlotTryAgain, nil
	}
}

func (c *ffmpegCodec) QueueInput(slot InputSlot, n int, pts int64, flags BufferFlags) error {
	defer func() { c.free <- slot }()
	if n > 0 {
		if _, err := c.stdin.Write(slot.Buf[:n]); err != nil {
			return fmt.Errorf("write pcm: %w (%s)", err, c.stderr.String())
		}
	}
	if flags&FlagEndOfStream != 0 {
		return c.closeInput()
	}
	return nil
}

func (c *ffmpegCodec) closeInput() error {
	var err error
	c.closeOnce.Do(func() { err = c.stdin.Close() })
	return err
}

func (c *ffmpegCodec) DequeueOutput(timeout time.Duration) (OutputBuffer, SlotStatus, error) {
	if !c.announced {
		c.announced = true
		return OutputBuffer{}, SlotFormatChanged, nil
	}

	deadline := time.After(timeout)
	for {
		c.mu.Lock()
		if len(c.pending) > 0 {
			buf := c.pending[0]
			c.pending = c.pending[1:]
			c.mu.Unlock()
			return buf, SlotReady, nil
		}
		if c.readDone {
			err := c.readErr
			c.mu.Unlock()
			return OutputBuffer{Flags: FlagEndOfStream}, SlotEndOfStream, err
		}
		c.mu.Unlock()

		select {
		case <-c.signal:
		case <-deadline:
			return OutputBuffer{}, SlotTryAgain, nil
		}
	}
}

func (c *ffmpegCodec) OutputFormat() TrackFormat {
	return TrackFormat{
		Codec:      "aac",
		Profile:    c.format.Profile,
		SampleRate: c.format.SampleRate,
		Channels:   c.format.Channels,
		BitRate:    c.format.BitRate,
	}
}

func (c *ffmpegCodec) Release() error {
	err := c.closeInput()
	c.readerWG.Wait()
	if werr := c.cmd.Wait(); werr != nil {
		err = errors.Join(err, fmt.Errorf("ffmpeg: %w (%s)", werr, bytes.TrimSpace(c.stderr.Bytes())))
	}
	return err
}

// readADTSFrame returns one complete ADTS frame, header included.
func readADTSFrame(r *bufio.Reader) ([]byte, error) {
	header, err := r.Peek(7)
	if err != nil {
		if len(header) == 0 {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("truncated adts header: %w", io.ErrUnexpectedEOF)
	}
	if header[0] != 0xff || header[1]&0xf0 != 0xf0 {
		return nil, errors.New("adts sync word not found")
	}
	size := int(header[3]&0x03)<<11 | int(header[4])<<3 | int(header[5])>>5
	if size < 7 {
		return nil, fmt.Errorf("invalid adts frame length %d", size)
	}
	frame := make([]byte, size)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, fmt.Errorf("truncated adts frame: %w", err)
	}
	return frame, nil
}
