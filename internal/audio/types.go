// Package audio drains raw PCM narration into a compressed audio file.
//
// The Encoder drives a Codec through a slot protocol: it acquires input
// slots, fills them with PCM, submits them with a presentation time and
// drains encoded buffers into a Muxer. Codec results are typed statuses.
package audio

import "time"

// SlotStatus is the result of a codec dequeue.
type SlotStatus int

const (
	SlotReady         SlotStatus = iota // a slot or buffer was returned
	SlotTryAgain                        // nothing available within the timeout
	SlotFormatChanged                   // the output format is known, register the track
	SlotEndOfStream                     // the codec emitted its last buffer
)

func (s SlotStatus) String() string {
	switch s {
	case SlotReady:
		return "ready"
	case SlotTryAgain:
		return "try-again"
	case SlotFormatChanged:
		return "format-changed"
	case SlotEndOfStream:
		return "end-of-stream"
	default:
		return "unknown"
	}
}

type BufferFlags uint8

const (
	FlagCodecConfig BufferFlags = 1 << iota
	FlagEndOfStream
)

// InputSlot is a codec-owned input buffer. len(Buf) is its capacity.
type InputSlot struct {
	Index int
	Buf   []byte
}

// OutputBuffer is one encoded access unit.
type OutputBuffer struct {
	Data  []byte
	PTS   int64 // microseconds
	Flags BufferFlags
}

// TrackFormat describes the encoded stream handed to the muxer.
type TrackFormat struct {
	Codec      string
	Profile    string
	SampleRate int
	Channels   int
	BitRate    int
}

// Format is fixed at encoder construction.
type Format struct {
	Profile    string // e.g. aac_low
	BitRate    int    // bits per second
	SampleRate int
	Channels   int
}

// DefaultFormat is AAC-LC, 64 kbps, 44.1 kHz mono.
func DefaultFormat() Format {
	return Format{Profile: "aac_low", BitRate: 64000, SampleRate: 44100, Channels: 1}
}

// Codec is an encoder presented as a pool of input slots and a queue of
// output buffers.
type Codec interface {
	DequeueInput(timeout time.Duration) (InputSlot, SlotStatus, error)
	QueueInput(slot InputSlot, n int, pts int64, flags BufferFlags) error
	DequeueOutput(timeout time.Duration) (OutputBuffer, SlotStatus, error)
	OutputFormat() TrackFormat
	Release() error
}

type Muxer interface {
	AddTrack(f TrackFormat) (int, error)
	Start() error
	WriteSample(track int, buf OutputBuffer) error
	// Stop finalizes the container and releases the file.
	Stop() error
}

type (
	CodecFactory func(f Format) (Codec, error)
	MuxerFactory func(path string) (Muxer, error)
)

// Phase is the encoder's position in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseNeedsInput
	PhaseHasOutput
	PhaseDraining
	PhaseDone
)

func (p Phase) String() string {
	return [...]string{"idle", "needs-input", "has-output", "draining", "done"}[p]
}
