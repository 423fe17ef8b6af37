package topology

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/developer0hye/video-decode-bench/internal/barrier"
	"github.com/developer0hye/video-decode-bench/internal/reader"
	"github.com/developer0hye/video-decode-bench/internal/streamctx"
)

// readerIdleWait bounds how long a pooled reader worker sleeps when a scan
// of its assigned readers did no work, woken early by the shared queue
// space callback, spec §4.2/§4.6.
const readerIdleWait = 10 * time.Millisecond

// Pool is the pooled topology of spec §4.6 (C6): a fixed set of
// reader-pool threads and decoder-worker threads servicing many streams.
// Used when stream count is large (at or above the host's CPU core count).
type Pool struct {
	streams []*streamctx.Context
	barrier *barrier.Barrier

	stopCtx context.Context
	cancel  context.CancelFunc

	workerCount int
	readerCount int

	workerWG sync.WaitGroup
	readerWG sync.WaitGroup

	// wake is the Go idiom for the original's reader_cv_: a 1-buffered
	// signal channel. The queue's space callback does a non-blocking send;
	// a pooled reader worker selects on it instead of busy-polling "queue
	// full" status.
	wake chan struct{}

	startTime time.Time
	initDone  atomic.Bool
}

// NewPool constructs streamCount stream contexts, wires each queue's space
// callback to wake idle reader-pool workers, and starts workerCount decoder
// workers plus either one reader goroutine per stream (if readerCount is at
// least streamCount) or readerCount pooled reader workers. Like NewDirect,
// construction never fails outright: every stream ends up opened or
// errored, and exactly workerCount decoder workers are always started, so
// the start barrier (workerCount+1 parties) is always satisfiable.
func NewPool(streamCount int, path string, targetFPS float64, decoderThreadCount int, isLiveStream bool, queueCapacity, workerCount, readerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if readerCount < 1 {
		readerCount = 1
	}

	stopCtx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		streams:     buildStreams(streamCount, path, targetFPS, decoderThreadCount, isLiveStream, queueCapacity),
		barrier:     barrier.New(workerCount + 1),
		stopCtx:     stopCtx,
		cancel:      cancel,
		workerCount: workerCount,
		readerCount: readerCount,
		wake:        make(chan struct{}, 1),
	}

	for _, sc := range p.streams {
		if sc.Queue != nil {
			sc.Queue.SetSpaceCallback(p.notifyReaders)
		}
	}

	if readerCount >= len(p.streams) {
		for _, sc := range p.streams {
			if sc.Reader != nil {
				p.readerWG.Add(1)
				go func(r *reader.Reader) {
					defer p.readerWG.Done()
					r.Run(p.stopCtx)
				}(sc.Reader)
			}
		}
	} else {
		p.readerWG.Add(readerCount)
		for r := 0; r < readerCount; r++ {
			go p.readerLoop(r)
		}
	}

	p.workerWG.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go p.runWorker(w)
	}

	return p
}

// notifyReaders wakes one pooled reader worker sleeping in readerLoop. It
// is invoked outside the packetqueue's internal synchronization (see
// packetqueue.Queue.SetSpaceCallback), so it never risks a lock inversion.
func (p *Pool) notifyReaders() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pool) runWorker(workerID int) {
	defer p.workerWG.Done()
	p.barrier.Arrive()

	// Only worker 0 initializes the shared start time and every stream's
	// initial next_frame_time, then releases initDone; every other worker
	// spins on it. This is the single-designated-initializer pattern of
	// spec §9, avoiding a second barrier.
	if workerID == 0 {
		p.startTime = time.Now()
		for _, sc := range p.streams {
			sc.NextFrameTime = p.startTime
		}
		p.initDone.Store(true)
	} else {
		for !p.initDone.Load() {
			runtime.Gosched()
		}
	}

	var mine []*streamctx.Context
	for i := workerID; i < len(p.streams); i += p.workerCount {
		mine = append(mine, p.streams[i])
	}

	if len(mine) == 1 {
		decodeSingle(p.stopCtx, mine[0])
		return
	}
	decodeMulti(p.stopCtx, mine)
}

func (p *Pool) readerLoop(readerID int) {
	defer p.readerWG.Done()

	var mine []*streamctx.Context
	for i := readerID; i < len(p.streams); i += p.readerCount {
		mine = append(mine, p.streams[i])
	}

	for {
		anyActive := false
		anyDidWork := false

		for _, sc := range mine {
			if sc.Reader == nil || sc.Reader.Done() {
				continue
			}
			switch sc.Reader.ReadNext(p.stopCtx) {
			case reader.StepQueued, reader.StepSkipped:
				anyActive = true
				anyDidWork = true
			case reader.StepQueueFull:
				anyActive = true
			case reader.StepDone:
			}
		}

		if !anyActive {
			break
		}

		if !anyDidWork {
			timer := time.NewTimer(readerIdleWait)
			select {
			case <-p.wake:
			case <-timer.C:
			case <-p.stopCtx.Done():
			}
			timer.Stop()
		}
	}
}

// Start releases the start barrier for the controller's own arrival. It
// blocks until every decoder worker has also arrived.
func (p *Pool) Start() {
	p.barrier.Arrive()
}

// Stop sets the shared stop signal.
func (p *Pool) Stop() {
	p.cancel()
}

// Join waits for every decoder worker, flushes each stream's decoder for
// final frame counts, wakes any sleeping reader-pool workers, and waits for
// every reader goroutine — the join ordering of spec §4.8 step 8 and the
// pool's own join() (workers first, then a final wake, then readers).
func (p *Pool) Join() {
	p.workerWG.Wait()

	for _, sc := range p.streams {
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

	close(p.wake)
	p.readerWG.Wait()

	for _, sc := range p.streams {
		closeStream(sc)
	}
}

// Elapsed returns the time since Start released the barrier and worker 0
// recorded the shared start time.
func (p *Pool) Elapsed() time.Duration {
	return time.Since(p.startTime)
}

// Streams returns every stream context this topology owns, for result
// aggregation.
func (p *Pool) Streams() []*streamctx.Context {
	return p.streams
}

// FirstError returns the first per-stream error recorded, if any, per spec
// §7's "Any per-stream fatal" rule.
func (p *Pool) FirstError() error {
	for _, sc := range p.streams {
		if sc.HasError() {
			return streamError(sc)
		}
	}
	return nil
}
