package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

type queued struct {
	n     int
	pts   int64
	flags BufferFlags
}

type fakeCodec struct {
	slotSize      int
	free          []InputSlot
	tryAgainEvery int
	withConfig    bool

	dequeues   int
	inputs     []queued
	pending    []OutputBuffer
	maxPending int
	announced  bool
	eosQueued  int
	eosSent    bool
	released   int
}

func newFakeCodec(slots, slotSize int) *fakeCodec {
	c := &fakeCodec{slotSize: slotSize}
	for i := 0; i < slots; i++ {
		c.free = append(c.free, InputSlot{Index: i, Buf: make([]byte, slotSize)})
	}
	return c
}

func (c *fakeCodec) DequeueInput(time.Duration) (InputSlot, SlotStatus, error) {
	c.dequeues++
	if c.tryAgainEvery > 0 && c.dequeues%c.tryAgainEvery == 0 {
		return InputSlot{}, SlotTryAgain, nil
	}
	if len(c.free) == 0 {
		return InputSlot{}, SlotTryAgain, nil
	}
	s := c.free[0]
	c.free = c.free[1:]
	return s, SlotReady, nil
}

func (c *fakeCodec) QueueInput(slot InputSlot, n int, pts int64, flags BufferFlags) error {
	c.inputs = append(c.inputs, queued{n: n, pts: pts, flags: flags})
	if flags&FlagEndOfStream != 0 {
		c.eosQueued++
	}
	if n > 0 {
		c.pending = append(c.pending, OutputBuffer{Data: bytes.Clone(slot.Buf[:n]), PTS: pts})
		c.maxPending = max(c.maxPending, len(c.pending))
	}
	c.free = append(c.free, slot)
	return nil
}

func (c *fakeCodec) DequeueOutput(time.Duration) (OutputBuffer, SlotStatus, error) {
	if !c.announced {
		c.announced = true
		return OutputBuffer{}, SlotFormatChanged, nil
	}
	if c.withConfig {
		c.withConfig = false
		return OutputBuffer{Data: []byte{0x12, 0x10}, Flags: FlagCodecConfig}, SlotReady, nil
	}
	if len(c.pending) > 0 {
		b := c.pending[0]
		c.pending = c.pending[1:]
		return b, SlotReady, nil
	}
	if c.eosQueued > 0 && !c.eosSent {
		c.eosSent = true
		return OutputBuffer{Flags: FlagEndOfStream}, SlotEndOfStream, nil
	}
	return OutputBuffer{}, SlotTryAgain, nil
}

func (c *fakeCodec) OutputFormat() TrackFormat {
	return TrackFormat{Codec: "aac", SampleRate: 8000, Channels: 1}
}

func (c *fakeCodec) Release() error {
	c.released++
	return nil
}

type fakeMuxer struct {
	tracks  []TrackFormat
	started int
	stopped int
	data    bytes.Buffer
	samples []OutputBuffer
}

func (m *fakeMuxer) AddTrack(f TrackFormat) (int, error) {
	m.tracks = append(m.tracks, f)
	return len(m.tracks) - 1, nil
}

func (m *fakeMuxer) Start() error {
	m.started++
	return nil
}

func (m *fakeMuxer) WriteSample(track int, buf OutputBuffer) error {
	if m.started == 0 {
		return ErrMuxerState
	}
	m.samples = append(m.samples, buf)
	m.data.Write(buf.Data)
	return nil
}

func (m *fakeMuxer) Stop() error {
	m.stopped++
	return nil
}

func newTestEncoder(codec *fakeCodec, muxer *fakeMuxer) *Encoder {
	f := Format{Profile: "aac_low", BitRate: 64000, SampleRate: 8000, Channels: 1}
	e := NewEncoder(f,
		func(Format) (Codec, error) { return codec, nil },
		func(string) (Muxer, error) { return muxer, nil })
	e.SetOutputPath("out.m4a")
	return e
}

func pcm(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestEncoderLifecycleErrors(t *testing.T) {
	codec, muxer := newFakeCodec(2, 100), &fakeMuxer{}
	e := newTestEncoder(codec, muxer)
	e.SetOutputPath("")

	if err := e.Prepare(); !errors.Is(err, ErrNoOutputPath) {
		t.Errorf("expected ErrNoOutputPath, got %v", err)
	}
	if err := e.Encode(context.Background(), bytes.NewReader(nil), 8000); !errors.Is(err, ErrNotPrepared) {
		t.Errorf("expected ErrNotPrepared, got %v", err)
	}
	if err := e.Stop(); !errors.Is(err, ErrNotPrepared) {
		t.Errorf("expected ErrNotPrepared from Stop, got %v", err)
	}

	e.SetOutputPath("out.m4a")
	if err := e.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := e.Prepare(); !errors.Is(err, ErrAlreadyPrepared) {
		t.Errorf("expected ErrAlreadyPrepared, got %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := e.Stop(); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if err := e.Encode(context.Background(), bytes.NewReader(nil), 8000); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped from Encode, got %v", err)
	}
	if codec.eosQueued != 1 || codec.released != 1 || muxer.stopped != 1 {
		t.Errorf("expected one eos/release/stop, got %d/%d/%d", codec.eosQueued, codec.released, muxer.stopped)
	}
	if e.Phase() != PhaseDone {
		t.Errorf("expected done phase, got %v", e.Phase())
	}
}

func TestEncodeSubmitsAllInput(t *testing.T) {
	codec, muxer := newFakeCodec(3, 1000), &fakeMuxer{}
	e := newTestEncoder(codec, muxer)
	if err := e.Prepare(); err != nil {
		t.Fatal(err)
	}

	input := pcm(16000) // one second of mono 8 kHz
	if err := e.Encode(context.Background(), bytes.NewReader(input), 8000); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if !bytes.Equal(muxer.data.Bytes(), input) {
		t.Errorf("muxer received %d bytes, expected %d", muxer.data.Len(), len(input))
	}
	if len(muxer.tracks) != 1 || muxer.started != 1 {
		t.Errorf("expected a single track started once, got %d tracks, %d starts", len(muxer.tracks), muxer.started)
	}

	var data []queued
	last := int64(-1)
	for _, q := range codec.inputs {
		if q.pts < last {
			t.Fatalf("pts went backwards: %d after %d", q.pts, last)
		}
		last = q.pts
		if q.n > 0 {
			data = append(data, q)
		}
	}
	if len(data) != 16 {
		t.Fatalf("expected 16 data slots, got %d", len(data))
	}
	for k, q := range data {
		if want := int64(k) * 62500; q.pts != want {
			t.Errorf("slot %d: expected pts %d, got %d", k, want, q.pts)
		}
	}

	eos := codec.inputs[len(codec.inputs)-1]
	if eos.flags&FlagEndOfStream == 0 || eos.n != 0 || eos.pts != 1_000_000 {
		t.Errorf("unexpected final slot %+v", eos)
	}
	if codec.eosQueued != 1 {
		t.Errorf("expected exactly one end of stream, got %d", codec.eosQueued)
	}
}

func TestEncodeRetriesTryAgain(t *testing.T) {
	codec, muxer := newFakeCodec(2, 500), &fakeMuxer{}
	codec.tryAgainEvery = 3
	e := newTestEncoder(codec, muxer)
	if err := e.Prepare(); err != nil {
		t.Fatal(err)
	}

	input := pcm(7300)
	if err := e.Encode(context.Background(), bytes.NewReader(input), 8000); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !bytes.Equal(muxer.data.Bytes(), input) {
		t.Errorf("muxer received %d bytes, expected %d", muxer.data.Len(), len(input))
	}
}

func TestEncodeDrainsPerBatch(t *testing.T) {
	codec, muxer := newFakeCodec(1, 1000), &fakeMuxer{}
	e := newTestEncoder(codec, muxer)
	if err := e.Prepare(); err != nil {
		t.Fatal(err)
	}

	// At 100 Hz a batch is 5000 bytes, so output is drained at least every
	// six slots.
	if err := e.Encode(context.Background(), bytes.NewReader(pcm(20000)), 100); err != nil {
		t.Fatal(err)
	}
	if codec.maxPending == 0 || codec.maxPending > 6 {
		t.Errorf("expected between 1 and 6 undrained buffers, got %d", codec.maxPending)
	}
	if e.Phase() != PhaseHasOutput {
		t.Errorf("expected has-output phase after Encode, got %v", e.Phase())
	}
}

func TestEncodeSkipsCodecConfig(t *testing.T) {
	codec, muxer := newFakeCodec(2, 100), &fakeMuxer{}
	codec.withConfig = true
	e := newTestEncoder(codec, muxer)
	if err := e.Prepare(); err != nil {
		t.Fatal(err)
	}
	if err := e.Encode(context.Background(), bytes.NewReader(pcm(250)), 8000); err != nil {
		t.Fatal(err)
	}
	if err := e.Stop(); err != nil {
		t.Fatal(err)
	}
	for _, s := range muxer.samples {
		if s.Flags&FlagCodecConfig != 0 {
			t.Fatal("codec config buffer reached the muxer")
		}
	}
	if muxer.data.Len() != 250 {
		t.Errorf("expected 250 bytes, got %d", muxer.data.Len())
	}
}

func TestEncodeConsecutiveStreams(t *testing.T) {
	codec, muxer := newFakeCodec(2, 1000), &fakeMuxer{}
	e := newTestEncoder(codec, muxer)
	if err := e.Prepare(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := e.Encode(context.Background(), bytes.NewReader(pcm(8000)), 8000); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Stop(); err != nil {
		t.Fatal(err)
	}

	last := muxer.samples[len(muxer.samples)-1]
	if last.PTS != 937_500 {
		t.Errorf("expected second stream to continue the clock, last pts %d", last.PTS)
	}
}

var errDisk = errors.New("disk gone")

type failingReader struct {
	r io.Reader
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err == io.EOF {
		return n, errDisk
	}
	return n, err
}

func TestEncodeReadErrorPropagates(t *testing.T) {
	codec, muxer := newFakeCodec(2, 1000), &fakeMuxer{}
	e := newTestEncoder(codec, muxer)
	if err := e.Prepare(); err != nil {
		t.Fatal(err)
	}

	err := e.Encode(context.Background(), &failingReader{r: bytes.NewReader(pcm(2500))}, 8000)
	if !errors.Is(err, errDisk) {
		t.Fatalf("expected read error, got %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop after read error failed: %v", err)
	}
	if muxer.data.Len() != 2000 {
		t.Errorf("expected the two full slots to be kept, got %d bytes", muxer.data.Len())
	}
}

func TestEncodeCancelled(t *testing.T) {
	codec, muxer := newFakeCodec(2, 1000), &fakeMuxer{}
	e := newTestEncoder(codec, muxer)
	if err := e.Prepare(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Encode(ctx, bytes.NewReader(pcm(100)), 8000); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
