// Package packetqueue implements the bounded packet channel described in
// spec §4.1 (C1), for one producer and one consumer per Queue.
//
// A Queue decouples one reader (I/O) from one decoder (CPU). It carries
// compressed packets in FIFO order with a fixed capacity, supports an
// in-band flush marker for loop seams, and latches EOF so a consumer can
// drain whatever is left and then observe a clean "closed" signal.
//
// The C++ original protects this with one mutex and two condition
// variables. A Go buffered channel already gives FIFO order, bounded
// capacity, block-with-timeout semantics via select, and drain-then-closed
// semantics for free, so that is what this is built on rather than
// hand-rolling the mutex/condvar pair.
package packetqueue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/asticode/go-astiav"
)

// PopStatus describes the outcome of a Pop call.
type PopStatus int

const (
	// StatusTimeout means no item arrived before the deadline; the queue is
	// neither closed nor necessarily empty (a push may race the timer).
	StatusTimeout PopStatus = iota
	// StatusPacket means a real packet was returned; the caller owns it and
	// must eventually call Free on it.
	StatusPacket
	// StatusFlush means the flush-marker sentinel was returned: the caller
	// should flush decoder state and continue, without advancing pacing.
	StatusFlush
	// StatusClosed means EOF was latched and the queue has fully drained.
	StatusClosed
)

func (s PopStatus) String() string {
	switch s {
	case StatusTimeout:
		return "timeout"
	case StatusPacket:
		return "packet"
	case StatusFlush:
		return "flush"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type entry struct {
	pkt *astiav.Packet // nil => flush marker
}

// Queue is a bounded FIFO of owned, reference-counted packets.
//
// Queue is intended for exactly one producer and one consumer; SignalEOF
// must only ever be called from the producer side, since it closes the
// underlying channel.
type Queue struct {
	ch       chan entry
	capacity int
	eof      atomic.Bool
	closeOnce sync.Once

	spaceCB atomic.Pointer[func()]
}

// New returns a Queue with the given capacity (spec default: 32).
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ch:       make(chan entry, capacity),
		capacity: capacity,
	}
}

// SetSpaceCallback installs fn to be invoked after every successful Pop,
// outside of any internal synchronization, so it is always safe for fn to
// do its own locking or notify other goroutines. Used by the pooled
// topology to wake reader-pool workers that found the queue full.
func (q *Queue) SetSpaceCallback(fn func()) {
	q.spaceCB.Store(&fn)
}

// Push stores pkt, blocking up to timeout for room. It returns false on
// timeout or if EOF has already been latched. The caller relinquishes
// ownership of pkt on success.
func (q *Queue) Push(pkt *astiav.Packet, timeout time.Duration) bool {
	return q.push(entry{pkt: pkt}, timeout)
}

// PushFlushMarker stores the flush-marker sentinel, blocking up to timeout
// for room. The consumer must call its decoder's FlushBuffers on receipt.
func (q *Queue) PushFlushMarker(timeout time.Duration) bool {
	return q.push(entry{}, timeout)
}

func (q *Queue) push(e entry, timeout time.Duration) bool {
	if q.eof.Load() {
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case q.ch <- e:
		return true
	case <-timer.C:
		return false
	}
}

// SignalEOF latches EOF. Pushes after this point fail; pops continue to
// drain whatever remains, then report StatusClosed. Idempotent.
func (q *Queue) SignalEOF() {
	if q.eof.CompareAndSwap(false, true) {
		q.closeOnce.Do(func() { close(q.ch) })
	}
}

// Pop waits up to timeout for an item. See PopStatus for the possible
// outcomes. The caller owns any returned packet and must Free it once done.
func (q *Queue) Pop(timeout time.Duration) (*astiav.Packet, PopStatus) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case e, open := <-q.ch:
		if !open {
			return nil, StatusClosed
		}
		if cb := q.spaceCB.Load(); cb != nil {
			(*cb)()
		}
		if e.pkt == nil {
			return nil, StatusFlush
		}
		return e.pkt, StatusPacket
	case <-timer.C:
		return nil, StatusTimeout
	}
}

// Size returns the number of items currently buffered.
func (q *Queue) Size() int {
	return len(q.ch)
}

// Capacity returns the fixed capacity Q the queue was constructed with.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Drain releases every packet still buffered in the queue. Call this once
// after SignalEOF and after every consumer has stopped popping, to free any
// packets that were never consumed.
func (q *Queue) Drain() {
	q.SignalEOF()
	for e := range q.ch {
		if e.pkt != nil {
			e.pkt.Free()
		}
	}
}
