package sound

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// SlotPool maintains a fixed ring of reusable emitters and hands them out
// in FIFO order, so every emitter is reused round-robin: the one acquired
// is always the least-recently-acquired.
//
// The pool exclusively owns its emitters. Callers borrow one per play and
// release it implicitly through rotation; there is no explicit release.
type SlotPool struct {
	engine Engine
	root   Node
	ring   []Emitter
	head   int
	closed bool
}

// NewSlotPool creates a pool of size emitters, each parented under a
// pool-root node created for this purpose.
func NewSlotPool(engine Engine, size int) (*SlotPool, error) {
	p := &SlotPool{engine: engine}
	if err := p.init(size); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SlotPool) init(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPoolSize, size)
	}

	root, err := p.engine.NewNode("sound-pool")
	if err != nil {
		return fmt.Errorf("creating pool root: %w", err)
	}

	ring := make([]Emitter, 0, size)
	for i := 0; i < size; i++ {
		e, err := p.engine.NewEmitter(root)
		if err != nil {
			for _, made := range ring {
				made.Close()
			}
			root.Close()
			return fmt.Errorf("creating pool emitter %d: %w", i, err)
		}
		ring = append(ring, e)
	}

	p.root = root
	p.ring = ring
	p.head = 0

	log.Debug("sound pool initialized", "size", size)
	return nil
}

// Size returns the pool capacity.
func (p *SlotPool) Size() int {
	return len(p.ring)
}

// Next returns the least-recently-acquired emitter, rotating the ring. It
// returns the emitter unconditionally: if it is still playing, the next
// Play call cuts that playback off. Acquisition is O(1) and allocation
// free; "exactly N concurrent sounds" is the trade-off given up for that.
//
// A closed or zero-capacity pool returns nil; callers must skip the play
// request.
func (p *SlotPool) Next() Emitter {
	if p.closed || len(p.ring) == 0 {
		log.Debug("acquire from empty sound pool")
		return nil
	}
	e := p.ring[p.head]
	p.head = (p.head + 1) % len(p.ring)
	return e
}

// NextIdle rotates like Next but skips emitters that are still playing,
// trying up to Size slots. When a full rotation finds no idle emitter it
// logs a capacity-exhaustion warning and returns the last examined (still
// busy) one, accepting the cutoff.
func (p *SlotPool) NextIdle() Emitter {
	if p.closed || len(p.ring) == 0 {
		log.Debug("acquire from empty sound pool")
		return nil
	}

	var last Emitter
	for i := 0; i < len(p.ring); i++ {
		e := p.ring[p.head]
		p.head = (p.head + 1) % len(p.ring)
		if !e.IsPlaying() {
			return e
		}
		last = e
	}

	log.Warn("sound pool exhausted, cutting off oldest playback", "size", len(p.ring))
	return last
}

// Reset discards the current pool and rebuilds it with the given size.
// Every existing emitter and the pool root are closed first; emitters
// issued before the reset are invalid afterwards.
func (p *SlotPool) Reset(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPoolSize, size)
	}
	p.teardown()
	p.closed = false
	return p.init(size)
}

// Close releases every pooled emitter and the pool root. A closed pool
// returns nil from Next and NextIdle.
func (p *SlotPool) Close() error {
	if p.closed {
		return nil
	}
	p.teardown()
	p.closed = true
	return nil
}

func (p *SlotPool) teardown() {
	for _, e := range p.ring {
		if err := e.Close(); err != nil {
			log.Debug("closing pooled emitter", "error", err)
		}
	}
	p.ring = nil
	p.head = 0
	if p.root != nil {
		if err := p.root.Close(); err != nil {
			log.Debug("closing pool root", "error", err)
		}
		p.root = nil
	}
}
