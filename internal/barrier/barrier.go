// Package barrier implements a single-use N-party rendezvous barrier.
//
// Go has no standard-library equivalent of C++'s std::barrier. This is the
// smallest primitive that gives the measurement harness what it needs: every
// arriver blocks until exactly N parties have arrived, then all are released
// together.
package barrier

import "sync/atomic"

// Barrier is a one-shot rendezvous point for a fixed number of parties.
// It is not reusable: once every party has arrived, every subsequent call to
// Arrive returns immediately.
type Barrier struct {
	remaining int32
	released  chan struct{}
}

// New returns a Barrier that releases once n parties have called Arrive.
func New(n int) *Barrier {
	return &Barrier{
		remaining: int32(n),
		released:  make(chan struct{}),
	}
}

// Arrive blocks until the last of the n parties has also called Arrive.
func (b *Barrier) Arrive() {
	if atomic.AddInt32(&b.remaining, -1) == 0 {
		close(b.released)
	}
	<-b.released
}
