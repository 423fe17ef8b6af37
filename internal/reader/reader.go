// Package reader implements the packet reader of spec §4.2 (C2): it opens a
// source, discovers the video substream, and feeds compressed packets into
// a packetqueue.Queue. It supports both driving modes spec §4.2 describes —
// thread mode (Run, for the per-stream-thread topology) and pool mode
// (ReadNext, a single step for the pooled topology's reader workers).
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/asticode/go-astiav"

	"github.com/developer0hye/video-decode-bench/internal/packetqueue"
	"github.com/developer0hye/video-decode-bench/internal/result"
)

// pushTimeout bounds how long a blocked push waits before the reader
// rechecks the stop flag; also how long file-mode's flush-marker push waits.
const pushTimeout = 100 * time.Millisecond

// StepResult is the outcome of one ReadNext call, spec §4.2's pool-mode
// step enum {queued, queue-full, skipped-non-video, done}.
type StepResult int

const (
	// StepQueued means a video packet was read and queued.
	StepQueued StepResult = iota
	// StepQueueFull means a video packet was read but the queue had no room
	// within the push timeout; the packet was dropped and must be reread.
	StepQueueFull
	// StepSkipped means a non-video packet was read and discarded, or a
	// file-mode loop seam was handled (seek to start plus flush marker).
	StepSkipped
	// StepDone means the reader reached a terminal condition (EOF on a live
	// source, a read error, or the stop flag) and signalled EOF.
	StepDone
)

// Reader reads compressed packets from one source into one queue.
type Reader struct {
	path         string
	queue        *packetqueue.Queue
	isLiveStream bool

	formatCtx  *astiav.FormatContext
	streamIdx  int
	codecPars  *astiav.CodecParameters
	pkt        *astiav.Packet

	hasError atomic.Bool
	errMsg   string
	errKind  result.ErrorKind
	done     atomic.Bool
}

// New constructs a Reader for path. is a live (non-seekable) source
// determines EOF handling: live EOF is terminal, file EOF is a loop seam.
func New(path string, queue *packetqueue.Queue, isLiveStream bool) *Reader {
	return &Reader{
		path:         path,
		queue:        queue,
		isLiveStream: isLiveStream,
		streamIdx:    -1,
	}
}

// Init opens the source, discovers stream info, and locates the first video
// substream. It must be called exactly once, before Run or ReadNext.
func (r *Reader) Init() error {
	r.formatCtx = astiav.AllocFormatContext()
	if r.formatCtx == nil {
		return errors.New("reader: failed to allocate format context")
	}

	var opts *astiav.Dictionary
	if r.isLiveStream {
		opts = astiav.NewDictionary()
		defer opts.Free()
		_ = opts.Set("rtsp_transport", "tcp", 0)
		_ = opts.Set("stimeout", "5000000", 0)
		_ = opts.Set("buffer_size", "1048576", 0)
	}

	if err := r.formatCtx.OpenInput(r.path, nil, opts); err != nil {
		return fmt.Errorf("reader: failed to open source: %w", err)
	}

	if err := r.formatCtx.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("reader: failed to find stream info: %w", err)
	}

	for _, stream := range r.formatCtx.Streams() {
		if stream.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			r.streamIdx = stream.Index()
			r.codecPars = stream.CodecParameters()
			break
		}
	}
	if r.streamIdx < 0 {
		return errors.New("reader: no video stream found")
	}

	r.pkt = astiav.AllocPacket()
	return nil
}

// VideoStreamIndex returns the discovered video substream index, valid
// after Init.
func (r *Reader) VideoStreamIndex() int { return r.streamIdx }

// CodecParameters returns the video substream's codec parameters, valid
// after Init. Ownership remains with the reader's format context.
func (r *Reader) CodecParameters() *astiav.CodecParameters { return r.codecPars }

// HasError reports whether the reader terminated with an error.
func (r *Reader) HasError() bool { return r.hasError.Load() }

// Error returns the error message if HasError is true.
func (r *Reader) Error() string { return r.errMsg }

// ErrorKind returns the classified kind of the recorded error, valid once
// HasError is true.
func (r *Reader) ErrorKind() result.ErrorKind { return r.errKind }

// Done reports whether the reader has reached a terminal state and
// signalled EOF on its queue.
func (r *Reader) Done() bool { return r.done.Load() }

// Run drives the reader to completion, looping until ctx is cancelled or a
// terminal condition is reached. This is the thread-mode driver used by the
// per-stream-thread topology (C5): one goroutine, one reader, one queue.
func (r *Reader) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			break
		}
		if r.step(ctx) == StepDone {
			break
		}
	}
	r.finish()
}

// ReadNext performs exactly one read-and-dispatch step. This is the
// pool-mode driver used by the pooled topology's reader workers (C6): a
// worker owns a round-robin subset of readers and calls ReadNext once per
// reader per scan.
func (r *Reader) ReadNext(ctx context.Context) StepResult {
	if r.done.Load() {
		return StepDone
	}
	if ctx.Err() != nil {
		r.finish()
		return StepDone
	}
	return r.step(ctx)
}

func (r *Reader) step(ctx context.Context) StepResult {
	err := r.formatCtx.ReadFrame(r.pkt)
	if err != nil {
		if errors.Is(err, astiav.ErrEof) {
			if r.isLiveStream {
				r.fail(result.ErrorKindLiveStreamEnded, "stream ended")
				return StepDone
			}
			// File mode: loop back to the start and mark the seam so the
			// decoder flushes stale reference frames before the new pass.
			_ = r.formatCtx.SeekFrame(-1, 0, astiav.SeekFlagBackward)
			r.queue.PushFlushMarker(pushTimeout)
			return StepSkipped
		}
		r.fail(result.ErrorKindTransientRead, fmt.Sprintf("read error: %v", err))
		return StepDone
	}
	defer r.pkt.Unref()

	if r.pkt.StreamIndex() != r.streamIdx {
		return StepSkipped
	}

	clone := astiav.AllocPacket()
	clone.Ref(r.pkt)
	if !r.queue.Push(clone, pushTimeout) {
		clone.Free()
		if ctx.Err() != nil {
			r.finish()
			return StepDone
		}
		return StepQueueFull
	}
	return StepQueued
}

func (r *Reader) fail(kind result.ErrorKind, msg string) {
	r.errMsg = msg
	r.errKind = kind
	r.hasError.Store(true)
	r.finish()
}

func (r *Reader) finish() {
	if r.done.CompareAndSwap(false, true) {
		r.queue.SignalEOF()
	}
}

// Close releases the reader's demuxer resources. Call after the reader has
// finished (Done() is true) and has been joined.
func (r *Reader) Close() {
	if r.pkt != nil {
		r.pkt.Free()
		r.pkt = nil
	}
	if r.formatCtx != nil {
		r.formatCtx.CloseInput()
		r.formatCtx.Free()
		r.formatCtx = nil
	}
}
