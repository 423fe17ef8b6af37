// Package streamctx implements the per-stream mutable state of spec §4.4
// (C4): the channel, reader, decoder, pacing clock, frame/lag counters, and
// error/finished/claim flags that together make up one stream's slice of a
// topology.
package streamctx

import (
	"sync/atomic"
	"time"

	"github.com/developer0hye/video-decode-bench/internal/codec"
	"github.com/developer0hye/video-decode-bench/internal/packetqueue"
	"github.com/developer0hye/video-decode-bench/internal/reader"
	"github.com/developer0hye/video-decode-bench/internal/result"
)

// batchSize is how many frames accumulate in the worker-local counter
// before being published to the atomic FramesDecoded, per spec §4.7.
const batchSize = 16

// LagTolerance is the maximum a frame may arrive late before it counts as
// lag and resets the pacing clock, per spec §4.7.
const LagTolerance = time.Millisecond

// Context holds one stream's state for the lifetime of a topology. It is
// constructed before the start barrier and destroyed after the topology
// joins all its threads; outside of construction and the final publish, it
// is mutated by exactly one goroutine at a time (guarded either by
// dedicated assignment in C5 or by Claimed in C6).
type Context struct {
	StreamID int

	Queue   *packetqueue.Queue
	Reader  *reader.Reader
	Decoder *codec.Decoder

	NextFrameTime time.Time
	FrameInterval time.Duration

	FramesDecoded atomic.Int64
	totalFrames   int64

	LagCount int64
	MaxLagMs float64

	hasError     atomic.Bool
	errorMessage string
	errorKind    result.ErrorKind
	finished     atomic.Bool

	claimed atomic.Bool
}

// New constructs a Context for streamID with the given frame interval. The
// caller fills in Queue/Reader/Decoder once those are opened.
func New(streamID int, frameInterval time.Duration) *Context {
	return &Context{
		StreamID:      streamID,
		FrameInterval: frameInterval,
	}
}

// TryClaim attempts exclusive access to this context, returning true on
// success. CAS-based so pool workers never need a per-stream mutex.
func (c *Context) TryClaim() bool {
	return c.claimed.CompareAndSwap(false, true)
}

// Release gives up exclusive access claimed by TryClaim.
func (c *Context) Release() {
	c.claimed.Store(false)
}

// IsReady reports whether a worker may process this context at time now:
// not finished, not errored, not claimed by another worker, and due.
func (c *Context) IsReady(now time.Time) bool {
	return !c.finished.Load() && !c.hasError.Load() && !c.claimed.Load() && !now.Before(c.NextFrameTime)
}

// Finished reports whether this stream's reader and decoder have both
// reached a terminal state.
func (c *Context) Finished() bool { return c.finished.Load() }

// SetFinished marks this stream as having no more work.
func (c *Context) SetFinished() { c.finished.Store(true) }

// HasError reports whether a fatal error was recorded for this stream.
func (c *Context) HasError() bool { return c.hasError.Load() }

// ErrorMessage returns the recorded error message, valid once HasError is
// true.
func (c *Context) ErrorMessage() string { return c.errorMessage }

// ErrorKind returns the recorded error's kind, valid once HasError is true.
func (c *Context) ErrorKind() result.ErrorKind { return c.errorKind }

// SetError records a fatal error for this stream and marks it finished,
// classified as kind per spec §7's error taxonomy.
func (c *Context) SetError(kind result.ErrorKind, msg string) {
	c.errorMessage = msg
	c.errorKind = kind
	c.hasError.Store(true)
	c.finished.Store(true)
}

// RecordFrame increments the worker-local frame counter and, every
// batchSize frames, publishes it to the atomic FramesDecoded. It returns
// true on a publish boundary, which is also when the stop flag should be
// checked (spec §4.7).
func (c *Context) RecordFrame() (publishBoundary bool) {
	c.totalFrames++
	if c.totalFrames%batchSize == 0 {
		c.FramesDecoded.Store(c.totalFrames)
		return true
	}
	return false
}

// TotalFrames returns the worker-local frame count. Only valid for the
// goroutine currently driving this context (or after that goroutine has
// exited and nothing else is mutating it).
func (c *Context) TotalFrames() int64 { return c.totalFrames }

// PublishFinal unconditionally synchronizes FramesDecoded with the
// worker-local total. Call once after a stream's loop exits, per spec
// §4.7's "final unconditional publish".
func (c *Context) PublishFinal() {
	c.FramesDecoded.Store(c.totalFrames)
}

// AdvancePacing applies the real-time pacing state machine of spec §4.7
// for one decoded frame at time now. It unconditionally advances
// NextFrameTime by FrameInterval first, then checks the result against now:
// beyond LagTolerance late, it resets NextFrameTime to now so the deficit
// does not accumulate; otherwise, if still ahead of schedule, it returns
// the duration the caller should sleep before the next frame is due.
func (c *Context) AdvancePacing(now time.Time) time.Duration {
	c.NextFrameTime = c.NextFrameTime.Add(c.FrameInterval)

	lag := now.Sub(c.NextFrameTime)
	if lag > LagTolerance {
		c.LagCount++
		lagMs := float64(lag) / float64(time.Millisecond)
		if lagMs > c.MaxLagMs {
			c.MaxLagMs = lagMs
		}
		c.NextFrameTime = now
		return 0
	}
	if now.Before(c.NextFrameTime) {
		return c.NextFrameTime.Sub(now)
	}
	return 0
}
