package sound

import (
	"container/heap"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// reaper is the dispatcher's expiry queue for ephemeral emitters: a
// min-heap of deadlines drained by a single timer goroutine. Scheduled
// teardowns cannot be cancelled; closing the reaper closes everything
// still pending.
type reaper struct {
	mu     sync.Mutex
	queue  expiryHeap
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

type expiryEntry struct {
	emitter Emitter
	at      time.Time
}

func newReaper() *reaper {
	r := &reaper{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go r.loop()
	return r
}

// schedule closes the emitter after delay.
func (r *reaper) schedule(e Emitter, delay time.Duration) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		e.Close()
		return
	}
	heap.Push(&r.queue, expiryEntry{emitter: e, at: time.Now().Add(delay)})
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// pending returns the number of emitters awaiting teardown.
func (r *reaper) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

func (r *reaper) loop() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		r.mu.Lock()
		wait := time.Hour
		if len(r.queue) > 0 {
			wait = time.Until(r.queue[0].at)
		}
		r.mu.Unlock()

		if wait <= 0 {
			r.reapExpired()
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-r.done:
			return
		case <-r.wake:
		case <-timer.C:
			r.reapExpired()
		}
	}
}

func (r *reaper) reapExpired() {
	now := time.Now()
	var expired []Emitter

	r.mu.Lock()
	for len(r.queue) > 0 && !r.queue[0].at.After(now) {
		entry := heap.Pop(&r.queue).(expiryEntry)
		expired = append(expired, entry.emitter)
	}
	r.mu.Unlock()

	for _, e := range expired {
		if err := e.Close(); err != nil {
			log.Debug("reaping ephemeral emitter", "error", err)
		}
	}
}

// close stops the timer goroutine and closes all pending emitters.
func (r *reaper) close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	remaining := make([]Emitter, 0, len(r.queue))
	for _, entry := range r.queue {
		remaining = append(remaining, entry.emitter)
	}
	r.queue = nil
	r.mu.Unlock()

	close(r.done)
	for _, e := range remaining {
		e.Close()
	}
}

// expiryHeap orders entries by deadline, soonest first.
type expiryHeap []expiryEntry

func (h expiryHeap) Len() int            { return len(h) }
func (h expiryHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h expiryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x interface{}) { *h = append(*h, x.(expiryEntry)) }
func (h *expiryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}
