package sound

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
)

// Dispatcher configures and starts playback of clips on emitters sourced
// from its slot pool, or on ephemeral emitters when pooling is disabled.
// It assumes the single-threaded call discipline of a game loop; it does
// not guard against concurrent use.
type Dispatcher struct {
	engine Engine
	cfg    Config
	pool   *SlotPool
	reaper *reaper

	// flat is the lazily-created shared emitter for non-positional
	// playback. All 2D one-shots layer onto its output.
	flat Emitter

	closed bool
}

// NewDispatcher creates a dispatcher on the given engine. With
// cfg.Pooling set it builds a slot pool of cfg.PoolSize emitters up front.
func NewDispatcher(engine Engine, cfg Config) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		engine: engine,
		cfg:    cfg,
		reaper: newReaper(),
	}

	if cfg.Pooling {
		pool, err := NewSlotPool(engine, cfg.PoolSize)
		if err != nil {
			d.reaper.close()
			return nil, fmt.Errorf("building slot pool: %w", err)
		}
		d.pool = pool
	}

	return d, nil
}

// Pool returns the dispatcher's slot pool, or nil in ephemeral mode.
func (d *Dispatcher) Pool() *SlotPool {
	return d.pool
}

// Play configures an emitter for clip at the given world position and
// starts playback. It returns the emitter used.
//
// Missing clip, zero volume and zero pitch reject the request silently:
// nil emitter, nil error, no pool rotation. Zero pitch in particular would
// divide the teardown schedule by zero, so it is guarded, not clamped.
func (d *Dispatcher) Play(clip *Clip, at Vec3, p PlayParams) (Emitter, error) {
	if d.closed {
		return nil, ErrDispatcherClosed
	}

	// Rejection happens before any pool interaction.
	switch {
	case clip == nil:
		log.Debug("play rejected: no clip")
		return nil, nil
	case p.Volume == 0:
		log.Debug("play rejected: zero volume", "clip", clip.Name)
		return nil, nil
	case p.Pitch == 0:
		log.Debug("play rejected: zero pitch", "clip", clip.Name)
		return nil, nil
	}

	var e Emitter
	if d.pool != nil {
		if d.cfg.SkipBusy {
			e = d.pool.NextIdle()
		} else {
			e = d.pool.Next()
		}
		if e == nil {
			return nil, nil
		}
	} else {
		var err error
		e, err = d.engine.NewEmitter(nil)
		if err != nil {
			return nil, fmt.Errorf("creating ephemeral emitter: %w", err)
		}
		d.reaper.schedule(e, teardownDelay(clip.Duration, p.Pitch, d.cfg.DestroyMargin))
	}

	d.configure(e, clip, at, p)
	e.Play()
	return e, nil
}

// PlayFromSet picks a clip from the set and plays it at the given world
// position. With p.NoRepeat the pick is never the same clip twice in a
// row. An empty or nil set is a recoverable rejection.
func (d *Dispatcher) PlayFromSet(set *ClipSet, at Vec3, p PlayParams) (Emitter, error) {
	if d.closed {
		return nil, ErrDispatcherClosed
	}
	if set.Len() == 0 {
		log.Warn("play rejected: empty clip set")
		return nil, ErrEmptyClipSet
	}

	var clip *Clip
	if p.NoRepeat {
		clip = set.PickNoRepeat()
	} else {
		clip = set.Pick()
	}
	return d.Play(clip, at, p)
}

// Play2D layers a non-positional one-shot of clip onto the shared 2D
// emitter, creating that emitter on first use. The engine mixes the
// overlapping instances; the emitter's spatial and loop settings are
// configured once at creation and never touched again.
func (d *Dispatcher) Play2D(clip *Clip, p PlayParams) (Emitter, error) {
	if d.closed {
		return nil, ErrDispatcherClosed
	}

	switch {
	case clip == nil:
		log.Debug("2d play rejected: no clip")
		return nil, nil
	case p.Volume == 0:
		log.Debug("2d play rejected: zero volume", "clip", clip.Name)
		return nil, nil
	case p.Pitch == 0:
		log.Debug("2d play rejected: zero pitch", "clip", clip.Name)
		return nil, nil
	}

	if d.flat == nil {
		e, err := d.engine.NewEmitter(nil)
		if err != nil {
			return nil, fmt.Errorf("creating 2d emitter: %w", err)
		}
		e.SetSpatialBlend(0)
		e.SetLoop(false)
		e.SetDoppler(0)
		d.flat = e
		log.Debug("created shared 2d emitter")
	}

	d.flat.PlayOneShot(clip, p.Volume*d.cfg.MasterVolume)
	return d.flat, nil
}

// PlayRandomTime seeks the emitter's assigned clip to a uniformly random
// timestamp and starts playback. An emitter with no clip is a no-op.
func (d *Dispatcher) PlayRandomTime(e Emitter) {
	if d.closed || e == nil {
		return
	}
	clip := e.Clip()
	if clip == nil || clip.Duration <= 0 {
		return
	}

	offset := time.Duration(rand.Int64N(int64(clip.Duration)))
	if err := e.Seek(offset); err != nil {
		log.Debug("random-time seek failed", "clip", clip.Name, "offset", offset, "error", err)
		return
	}
	e.Play()
}

// Close stops the expiry queue, the shared 2D emitter and the slot pool.
func (d *Dispatcher) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	d.reaper.close()
	if d.flat != nil {
		d.flat.Close()
		d.flat = nil
	}
	if d.pool != nil {
		return d.pool.Close()
	}
	return nil
}

// configure applies one-shot playback settings in a fixed order: loop is
// always forced off, doppler always zeroed, and the world position is set
// before any re-parenting so it is evaluated in world space.
func (d *Dispatcher) configure(e Emitter, clip *Clip, at Vec3, p PlayParams) {
	e.SetSpatialized(d.cfg.Spatializer)
	e.SetSpatialBlend(1)
	e.SetMinDistance(p.MinDistance)
	e.SetLoop(false)
	e.SetClip(clip)
	e.SetVolume(p.Volume * d.cfg.MasterVolume)
	e.SetPitch(p.Pitch)
	e.SetSpread(p.Spread)
	e.SetDoppler(0)
	e.SetRoute(p.Route)
	e.SetPosition(at)
	if p.Parent != nil {
		e.SetParent(p.Parent)
	}
}

// teardownDelay is how long an ephemeral emitter lives after Play: the
// clip duration scaled by pitch, plus a margin for engine latency.
func teardownDelay(duration time.Duration, pitch float64, margin time.Duration) time.Duration {
	return time.Duration(float64(duration)/pitch) + margin
}
