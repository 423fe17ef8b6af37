// Package topology implements the two execution topologies of spec §4.5/§4.6
// (C5, per-stream thread; C6, pooled) that drive a set of stream contexts
// from barrier release through final frame accounting.
package topology

import (
	"context"
	"fmt"
	"time"

	"github.com/asticode/go-astiav"

	"github.com/developer0hye/video-decode-bench/internal/codec"
	"github.com/developer0hye/video-decode-bench/internal/packetqueue"
	"github.com/developer0hye/video-decode-bench/internal/reader"
	"github.com/developer0hye/video-decode-bench/internal/result"
	"github.com/developer0hye/video-decode-bench/internal/streamctx"
)

// popTimeout is the single-stream blocking pop timeout of spec §4.6: long
// enough to be efficient when idle, short enough to keep stop reaction
// bounded, matching the pool's original "efficient blocking" comment.
const popTimeout = 100 * time.Millisecond

// scanPopTimeout is the multi-stream scan's per-context pop timeout, short
// so one stalled stream cannot starve the others sharing this worker.
const scanPopTimeout = time.Millisecond

// starvedSleep is how long a multi-stream worker sleeps when at least one
// due stream produced no frame during a scan, spec §4.6.
const starvedSleep = 500 * time.Microsecond

// buildStreams constructs and opens n stream contexts against path,
// synchronously and independently. A stream whose reader or decoder fails
// to open still gets a fully-formed Context with HasError set — every
// caller ends up with exactly n contexts regardless of partial failure, so
// topologies always spawn the same number of workers whether or not every
// stream opened cleanly. This is deliberate: it is what makes the start
// barrier's arrival count correct on every path, init-error included.
func buildStreams(n int, path string, targetFPS float64, decoderThreadCount int, isLiveStream bool, queueCapacity int) []*streamctx.Context {
	frameInterval := time.Duration(float64(time.Second) / targetFPS)
	streams := make([]*streamctx.Context, n)
	for i := 0; i < n; i++ {
		ctx := streamctx.New(i, frameInterval)
		openStream(ctx, path, decoderThreadCount, isLiveStream, queueCapacity)
		streams[i] = ctx
	}
	return streams
}

func openStream(ctx *streamctx.Context, path string, decoderThreadCount int, isLiveStream bool, queueCapacity int) {
	queue := packetqueue.New(queueCapacity)
	ctx.Queue = queue

	rdr := reader.New(path, queue, isLiveStream)
	if err := rdr.Init(); err != nil {
		ctx.SetError(result.ErrorKindSourceOpen, fmt.Sprintf("reader init: %v", err))
		return
	}
	ctx.Reader = rdr

	dec, err := codec.NewFromParameters(rdr.CodecParameters(), decoderThreadCount)
	if err != nil {
		ctx.SetError(result.ErrorKindUnsupportedCodec, fmt.Sprintf("decoder open: %v", err))
		return
	}
	ctx.Decoder = dec
}

// closeStream releases a stream's decoder, reader, and any packets still
// buffered in its queue. Call only after the stream's workers and reader
// have both stopped touching it.
func closeStream(ctx *streamctx.Context) {
	if ctx.Decoder != nil {
		ctx.Decoder.Close()
	}
	if ctx.Queue != nil {
		ctx.Queue.Drain()
	}
	if ctx.Reader != nil {
		ctx.Reader.Close()
	}
}

// decodeSingle is the single-stream fast path shared by C5's per-stream
// decoder loop and C6's worker-owns-exactly-one-stream case: a blocking
// pop with a long timeout for efficient idle behavior, spec §4.6/§4.7.
func decodeSingle(ctx context.Context, sc *streamctx.Context) {
	if sc.HasError() || sc.Decoder == nil {
		sc.SetFinished()
		sc.PublishFinal()
		return
	}
	for {
		if sc.TotalFrames()%16 == 0 && ctx.Err() != nil {
			break
		}

		pkt, status := sc.Queue.Pop(popTimeout)
		switch status {
		case packetqueue.StatusClosed:
			finishOnEOF(sc)
			return
		case packetqueue.StatusTimeout:
			continue
		case packetqueue.StatusFlush:
			sc.Decoder.FlushBuffers()
			continue
		case packetqueue.StatusPacket:
			if !decodeOnePacket(sc, pkt) {
				return
			}
		}
	}
	sc.SetFinished()
	sc.PublishFinal()
}

// decodeOnePacket decodes pkt, advances the pacing clock, and sleeps out
// any remaining time until the next frame is due. It returns false if a
// fatal decode error was recorded, signalling the caller to stop.
func decodeOnePacket(sc *streamctx.Context, pkt *astiav.Packet) bool {
	produced, err := sc.Decoder.DecodeFromPacket(pkt)
	pkt.Free()
	if err != nil {
		sc.SetError(result.ErrorKindDecode, err.Error())
		sc.PublishFinal()
		return false
	}
	if !produced {
		return true
	}

	sc.RecordFrame()
	now := time.Now()
	if sleep := sc.AdvancePacing(now); sleep > 0 {
		time.Sleep(sleep)
	}
	return true
}

func finishOnEOF(sc *streamctx.Context) {
	if sc.Reader.HasError() {
		sc.SetError(sc.Reader.ErrorKind(), sc.Reader.Error())
	}
	sc.SetFinished()
	sc.PublishFinal()
}

// drainUntilFrame repeatedly pops from sc's queue and submits to its
// decoder until a frame is produced or the channel closes, without
// sleeping for pacing. It is the multi-stream scan's building block, spec
// §4.6. It returns true if a frame was produced.
func drainUntilFrame(ctx context.Context, sc *streamctx.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		pkt, status := sc.Queue.Pop(scanPopTimeout)
		switch status {
		case packetqueue.StatusClosed:
			finishOnEOF(sc)
			return false
		case packetqueue.StatusTimeout:
			return false
		case packetqueue.StatusFlush:
			sc.Decoder.FlushBuffers()
			continue
		case packetqueue.StatusPacket:
			produced, err := sc.Decoder.DecodeFromPacket(pkt)
			pkt.Free()
			if err != nil {
				sc.SetError(result.ErrorKindDecode, err.Error())
				sc.PublishFinal()
				return false
			}
			if !produced {
				continue
			}
			sc.RecordFrame()
			// Advance the pacing clock but do not sleep here: the scanning
			// loop that owns multiple streams sleeps once per scan, bounded
			// by the earliest next_frame_time across all assigned streams.
			sc.AdvancePacing(time.Now())
			return true
		}
	}
}

// decodeMulti is the multi-stream scanning loop of spec §4.6, run by a
// worker that owns more than one assigned stream.
func decodeMulti(ctx context.Context, assigned []*streamctx.Context) {
	for {
		if ctx.Err() != nil {
			break
		}

		now := time.Now()
		var earliestNext time.Time
		haveEarliest := false
		anyActive := false
		anyStarved := false

		for _, sc := range assigned {
			if sc.Finished() || sc.HasError() {
				continue
			}
			anyActive = true

			if !now.Before(sc.NextFrameTime) {
				gotFrame := drainUntilFrame(ctx, sc)
				if !gotFrame && !sc.Finished() && !sc.HasError() {
					anyStarved = true
				}
				now = time.Now()
			}

			if !sc.Finished() && !sc.HasError() {
				if !haveEarliest || sc.NextFrameTime.Before(earliestNext) {
					earliestNext = sc.NextFrameTime
					haveEarliest = true
				}
			}
		}

		if !anyActive {
			break
		}

		now = time.Now()
		if anyStarved {
			time.Sleep(starvedSleep)
		} else if haveEarliest && earliestNext.After(now.Add(streamctx.LagTolerance)) {
			sleepUntil(ctx, earliestNext)
		}
	}

	for _, sc := range assigned {
		sc.SetFinished()
		sc.PublishFinal()
	}
}

// streamError turns a context's recorded error fields into a *result.KindError.
func streamError(sc *streamctx.Context) error {
	return result.NewKindError(sc.ErrorKind(), sc.StreamID, errStr(sc.ErrorMessage()))
}

type errStr string

func (e errStr) Error() string { return string(e) }

func sleepUntil(ctx context.Context, t time.Time) {
	d := time.Until(t)
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
