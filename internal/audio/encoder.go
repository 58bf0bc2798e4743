package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrNoOutputPath    = errors.New("audio output path not set")
	ErrAlreadyPrepared = errors.New("audio encoder already prepared")
	ErrNotPrepared     = errors.New("audio encoder not prepared")
	ErrStopped         = errors.New("audio encoder stopped")
	ErrDrainTimeout    = errors.New("codec did not reach end of stream")
)

const (
	// DefaultTimeout bounds every slot dequeue.
	DefaultTimeout = 5 * time.Millisecond
	// batchSeconds of PCM are submitted before output is drained.
	batchSeconds = 50
	// maxIdleDrains bounds the end-of-stream wait in Stop.
	maxIdleDrains = 2000
)

// Encoder converts PCM streams into one compressed file. Use it as
// SetOutputPath, Prepare, Encode any number of times, then Stop.
type Encoder struct {
	format   Format
	newCodec CodecFactory
	newMuxer MuxerFactory

	Timeout time.Duration
	Log     zerolog.Logger

	path       string
	codec      Codec
	muxer      Muxer
	track      int
	muxStarted bool

	phase      Phase
	totalBytes int64
	pts        int64
	lastPTS    int64
	eosQueued  bool
	eosSeen    bool
}

func NewEncoder(f Format, codec CodecFactory, muxer MuxerFactory) *Encoder {
	return &Encoder{
		format:   f,
		newCodec: codec,
		newMuxer: muxer,
		Timeout:  DefaultTimeout,
		Log:      zerolog.Nop(),
		lastPTS:  -1,
	}
}

func (e *Encoder) SetOutputPath(path string) {
	e.path = path
}

func (e *Encoder) Phase() Phase {
	return e.phase
}

// Format returns the output format fixed at construction.
func (e *Encoder) Format() Format {
	return e.format
}

// Prepare starts the codec and opens the muxer.
func (e *Encoder) Prepare() error {
	switch {
	case e.phase == PhaseDone:
		return ErrStopped
	case e.phase != PhaseIdle:
		return ErrAlreadyPrepared
	case e.path == "":
		return ErrNoOutputPath
	}

	codec, err := e.newCodec(e.format)
	if err != nil {
		return fmt.Errorf("start codec: %w", err)
	}
	muxer, err := e.newMuxer(e.path)
	if err != nil {
		codec.Release()
		return fmt.Errorf("open muxer %s: %w", e.path, err)
	}

	e.codec, e.muxer = codec, muxer
	e.totalBytes, e.pts = 0, 0
	e.phase = PhaseNeedsInput
	e.Log.Debug().Str("path", e.path).Int("sample_rate", e.format.SampleRate).Msg("audio encoder prepared")
	return nil
}

func (e *Encoder) checkActive() error {
	switch e.phase {
	case PhaseIdle:
		return ErrNotPrepared
	case PhaseDone:
		return ErrStopped
	}
	return nil
}

// Encode submits all of r to the codec. sampleRate is the rate of the input
// PCM and sets the batch size and presentation times. Read errors are
// returned as is; whatever was already encoded stays in the output.
func (e *Encoder) Encode(ctx context.Context, r io.Reader, sampleRate int) error {
	if err := e.checkActive(); err != nil {
		return err
	}
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	batchLimit := int64(batchSeconds * sampleRate)
	more := true
	for more {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.phase = PhaseNeedsInput
		var batch int64
		for more && batch <= batchLimit {
			slot, status, err := e.codec.DequeueInput(e.Timeout)
			if err != nil {
				return fmt.Errorf("dequeue input: %w", err)
			}
			if status == SlotTryAgain {
				break
			}
			if len(slot.Buf) == 0 {
				return fmt.Errorf("codec returned empty input slot %d", slot.Index)
			}

			n, rerr := io.ReadFull(r, slot.Buf)
			switch {
			case rerr == io.EOF || rerr == io.ErrUnexpectedEOF:
				more = false
			case rerr != nil:
				if err := e.codec.QueueInput(slot, 0, e.pts, 0); err != nil {
					rerr = errors.Join(rerr, err)
				}
				return fmt.Errorf("read pcm: %w", rerr)
			}

			if err := e.queue(slot, n, 0); err != nil {
				return err
			}
			e.advancePTS(n, sampleRate)
			batch += int64(n)
		}

		if err := e.drain(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) queue(slot InputSlot, n int, flags BufferFlags) error {
	if e.pts < e.lastPTS {
		return fmt.Errorf("input pts %d after %d", e.pts, e.lastPTS)
	}
	e.lastPTS = e.pts
	if err := e.codec.QueueInput(slot, n, e.pts, flags); err != nil {
		return fmt.Errorf("queue input: %w", err)
	}
	return nil
}

// advancePTS counts consumed bytes. The time base is per-channel samples of
// 16-bit PCM.
func (e *Encoder) advancePTS(n, sampleRate int) {
	e.totalBytes += int64(n)
	ch := int64(max(e.format.Channels, 1))
	e.pts = 1_000_000 * (e.totalBytes / (2 * ch)) / int64(sampleRate)
}

// drain moves encoded buffers to the muxer until the codec has nothing more
// to give within the timeout or reports end of stream.
func (e *Encoder) drain() error {
	e.phase = PhaseHasOutput
	for {
		buf, status, err := e.codec.DequeueOutput(e.Timeout)
		if err != nil {
			return fmt.Errorf("dequeue output: %w", err)
		}
		switch status {
		case SlotTryAgain:
			return nil
		case SlotFormatChanged:
			if e.muxStarted {
				continue
			}
			track, err := e.muxer.AddTrack(e.codec.OutputFormat())
			if err != nil {
				return fmt.Errorf("add track: %w", err)
			}
			if err := e.muxer.Start(); err != nil {
				return fmt.Errorf("start muxer: %w", err)
			}
			e.track, e.muxStarted = track, true
		case SlotReady, SlotEndOfStream:
			if err := e.write(buf); err != nil {
				return err
			}
			if status == SlotEndOfStream || buf.Flags&FlagEndOfStream != 0 {
				e.eosSeen = true
				return nil
			}
		}
	}
}

func (e *Encoder) write(buf OutputBuffer) error {
	if buf.Flags&FlagCodecConfig != 0 || len(buf.Data) == 0 {
		return nil
	}
	if !e.muxStarted {
		return errors.New("encoded data before output format")
	}
	if err := e.muxer.WriteSample(e.track, buf); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return nil
}

// Stop flushes the codec with a single end-of-stream slot, drains it and
// releases the codec and the muxer. It may be called once per Prepare.
func (e *Encoder) Stop() error {
	if err := e.checkActive(); err != nil {
		return err
	}
	e.phase = PhaseDraining
	err := e.flush()

	if rerr := e.codec.Release(); rerr != nil {
		err = errors.Join(err, fmt.Errorf("release codec: %w", rerr))
	}
	if merr := e.muxer.Stop(); merr != nil {
		err = errors.Join(err, fmt.Errorf("stop muxer: %w", merr))
	}
	e.codec, e.muxer = nil, nil
	e.phase = PhaseDone
	e.Log.Debug().Str("path", e.path).Int64("bytes_in", e.totalBytes).Msg("audio encoder stopped")
	return err
}

func (e *Encoder) flush() error {
	for idle := 0; !e.eosQueued; idle++ {
		if idle >= maxIdleDrains {
			return ErrDrainTimeout
		}
		slot, status, err := e.codec.DequeueInput(e.Timeout)
		if err != nil {
			return fmt.Errorf("dequeue input: %w", err)
		}
		if status == SlotTryAgain {
			if err := e.drain(); err != nil {
				return err
			}
			continue
		}
		if err := e.queue(slot, 0, FlagEndOfStream); err != nil {
			return err
		}
		e.eosQueued = true
	}

	for idle := 0; !e.eosSeen; idle++ {
		if idle >= maxIdleDrains {
			return ErrDrainTimeout
		}
		if err := e.drain(); err != nil {
			return err
		}
		e.phase = PhaseDraining
	}
	return nil
}
