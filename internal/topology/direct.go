package topology

import (
	"context"
	"sync"
	"time"

	"github.com/developer0hye/video-decode-bench/internal/barrier"
	"github.com/developer0hye/video-decode-bench/internal/streamctx"
)

// Direct is the per-stream thread topology of spec §4.5 (C5): one reader
// goroutine and one decoder goroutine per stream. Used when stream count is
// small (below the host's CPU core count).
type Direct struct {
	streams []*streamctx.Context
	barrier *barrier.Barrier

	stopCtx context.Context
	cancel  context.CancelFunc

	workerWG sync.WaitGroup
	readerWG sync.WaitGroup

	startTime time.Time
}

// NewDirect constructs streamCount stream contexts against path and starts
// their reader and decoder goroutines. Construction never fails outright:
// a stream whose source fails to open is still spawned and immediately
// reports finished with an error, so the barrier's arrival count (N+1) is
// always satisfied regardless of how many streams failed to open.
func NewDirect(streamCount int, path string, targetFPS float64, decoderThreadCount int, isLiveStream bool, queueCapacity int) *Direct {
	stopCtx, cancel := context.WithCancel(context.Background())
	d := &Direct{
		streams: buildStreams(streamCount, path, targetFPS, decoderThreadCount, isLiveStream, queueCapacity),
		barrier: barrier.New(streamCount + 1),
		stopCtx: stopCtx,
		cancel:  cancel,
	}

	for _, sc := range d.streams {
		if sc.Reader != nil {
			d.readerWG.Add(1)
			go func(r *streamctx.Context) {
				defer d.readerWG.Done()
				r.Reader.Run(d.stopCtx)
			}(sc)
		}
	}

	d.workerWG.Add(len(d.streams))
	for _, sc := range d.streams {
		go d.runDecoder(sc)
	}

	return d
}

func (d *Direct) runDecoder(sc *streamctx.Context) {
	defer d.workerWG.Done()
	d.barrier.Arrive()
	if sc.HasError() {
		return
	}
	decodeSingle(d.stopCtx, sc)
}

// Start releases the start barrier for the controller's own arrival. It
// blocks until every decoder goroutine has also arrived.
func (d *Direct) Start() {
	d.barrier.Arrive()
	d.startTime = time.Now()
}

// Stop sets the shared stop signal. Cooperative: workers observe it within
// one pop timeout or one 16-frame batch boundary.
func (d *Direct) Stop() {
	d.cancel()
}

// Join waits for every decoder goroutine, flushes each stream's decoder to
// collect buffered frames, then waits for every reader goroutine, matching
// the join ordering of spec §4.8 step 8 (workers before readers).
func (d *Direct) Join() {
	d.workerWG.Wait()

	for _, sc := range d.streams {
		if sc.Decoder != nil && sc.Decoder.IsOpen() && !sc.HasError() {
			for {
				produced, err := sc.Decoder.FlushDecoder()
				if err != nil || !produced {
					break
				}
				sc.RecordFrame()
			}
		}
		sc.PublishFinal()
	}

	d.readerWG.Wait()

	for _, sc := range d.streams {
		closeStream(sc)
	}
}

// Elapsed returns the time since Start released the barrier.
func (d *Direct) Elapsed() time.Duration {
	return time.Since(d.startTime)
}

// Streams returns every stream context this topology owns, for result
// aggregation.
func (d *Direct) Streams() []*streamctx.Context {
	return d.streams
}

// FirstError returns the first per-stream error recorded, if any, per spec
// §7's "Any per-stream fatal" rule.
func (d *Direct) FirstError() error {
	for _, sc := range d.streams {
		if sc.HasError() {
			return streamError(sc)
		}
	}
	return nil
}
