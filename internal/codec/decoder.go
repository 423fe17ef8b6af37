// Package codec wraps a single go-astiav decoder as described in spec §4.3
// (C3). Each Decoder owns its own astiav.CodecContext, so two Decoders never
// share FFmpeg state and are safe to run concurrently on different
// goroutines — exactly the "each instance owns its own context for thread
// safety" contract of the original decoder wrapper.
package codec

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
)

// ErrNotOpen is returned by any decode operation on a Decoder that failed
// to open or was never opened.
var ErrNotOpen = errors.New("codec: decoder not open")

// Decoder decodes compressed packets for a single video stream, using the
// FFmpeg thread count chosen at construction (see NewFromParameters).
type Decoder struct {
	codecCtx *astiav.CodecContext
	frame    *astiav.Frame
	open     bool
	eofSent  bool
}

// NewFromParameters opens a decoder for the given stream's codec
// parameters. This is the pipeline-mode path (spec §4.3's initFromParams):
// the caller (a Reader) owns the demuxer's format context and hands this
// Decoder only the per-stream codec parameters, never the container.
//
// threadCount mirrors spec §4.3: 1 when the stream count is at or above the
// multi-thread threshold, otherwise max(1, cores/streams), so that at high
// concurrency CPU usage is attributable per-stream rather than smeared
// across FFmpeg's internal frame threads.
func NewFromParameters(params *astiav.CodecParameters, threadCount int) (*Decoder, error) {
	c := astiav.FindDecoder(params.CodecID())
	if c == nil {
		return nil, fmt.Errorf("codec: unsupported codec id %v", params.CodecID())
	}

	codecCtx := astiav.AllocCodecContext(c)
	if codecCtx == nil {
		return nil, errors.New("codec: failed to allocate codec context")
	}

	if err := params.ToCodecContext(codecCtx); err != nil {
		codecCtx.Free()
		return nil, fmt.Errorf("codec: copy codec parameters: %w", err)
	}

	if threadCount < 1 {
		threadCount = 1
	}
	codecCtx.SetThreadCount(threadCount)

	if err := codecCtx.Open(c, nil); err != nil {
		codecCtx.Free()
		return nil, fmt.Errorf("codec: open codec: %w", err)
	}

	return &Decoder{
		codecCtx: codecCtx,
		frame:    astiav.AllocFrame(),
		open:     true,
	}, nil
}

// IsOpen reports whether the decoder successfully opened and has not been
// closed.
func (d *Decoder) IsOpen() bool {
	return d.open
}

// DecodeFromPacket submits one compressed packet and attempts to pull
// exactly one raw frame, matching spec §4.3's submit_packet contract. The
// caller retains ownership of pkt. A false, nil return means "need more
// input" (EAGAIN) — normal B-frame reorder back-pressure, not an error.
// Any frames left buffered beyond the one pulled here surface on a later
// call or during FlushDecoder.
func (d *Decoder) DecodeFromPacket(pkt *astiav.Packet) (bool, error) {
	if !d.open {
		return false, ErrNotOpen
	}
	if err := d.codecCtx.SendPacket(pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return false, fmt.Errorf("codec: send packet: %w", err)
	}
	return d.receiveOne()
}

// FlushBuffers discards the decoder's internal buffered state without
// producing frames. Used on a loop-seam flush marker so a new pass over a
// looping file does not read stale B-frame reorder state.
func (d *Decoder) FlushBuffers() {
	if d.open {
		d.codecCtx.FlushBuffers()
		d.eofSent = false
	}
}

// FlushDecoder pulls one remaining buffered frame, sending the decoder's
// EOF marker on the first call. Call this repeatedly until it returns
// false to collect every frame still buffered by the decoder's reorder
// delay, per spec §4.3's drain() contract.
func (d *Decoder) FlushDecoder() (bool, error) {
	if !d.open {
		return false, ErrNotOpen
	}
	if !d.eofSent {
		d.eofSent = true
		if err := d.codecCtx.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
			return false, fmt.Errorf("codec: drain send packet: %w", err)
		}
	}
	return d.receiveOne()
}

func (d *Decoder) receiveOne() (bool, error) {
	err := d.codecCtx.ReceiveFrame(d.frame)
	if err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return false, nil
		}
		return false, fmt.Errorf("codec: receive frame: %w", err)
	}
	d.frame.Unref()
	return true, nil
}

// Close releases the decoder's FFmpeg resources. Safe to call once; a
// second call is a no-op.
func (d *Decoder) Close() {
	if !d.open {
		return
	}
	d.open = false
	if d.frame != nil {
		d.frame.Free()
		d.frame = nil
	}
	if d.codecCtx != nil {
		d.codecCtx.Free()
		d.codecCtx = nil
	}
}
