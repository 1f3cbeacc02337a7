package otoengine

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/nothke/naudio/sound"
)

// Config holds playback engine options.
type Config struct {
	// SampleRate is the output sample rate in Hz. Every clip is converted
	// to this rate on load.
	SampleRate int

	// ChannelCount is the number of output channels (1 or 2).
	ChannelCount int

	// BufferSize is the device buffer size; zero uses the driver default.
	// Bigger buffers add latency, smaller ones risk glitches.
	BufferSize time.Duration

	// ReadyTimeout bounds how long New waits for the audio device.
	ReadyTimeout time.Duration
}

// DefaultConfig returns an engine configuration for game-style output.
func DefaultConfig() Config {
	return Config{
		SampleRate:   44100,
		ChannelCount: 2,
		BufferSize:   50 * time.Millisecond,
		ReadyTimeout: 5 * time.Second,
	}
}

// Engine implements sound.Engine on an oto audio context. Spatialization
// is a gain model only: emitters attenuate by distance from the listener,
// interpolated by spatial blend. Panning, doppler and spatializer plugins
// are out of scope; those fields are accepted and ignored.
type Engine struct {
	ctx *oto.Context
	cfg Config

	mu       sync.Mutex
	listener sound.Vec3
	emitters []*Emitter
	closed   bool
}

// New creates an oto context and waits for the audio device to become
// ready.
func New(cfg Config) (*Engine, error) {
	if cfg.SampleRate <= 0 || cfg.ChannelCount < 1 || cfg.ChannelCount > 2 {
		return nil, fmt.Errorf("%w: sample rate %d, channels %d", sound.ErrInvalidConfig, cfg.SampleRate, cfg.ChannelCount)
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 5 * time.Second
	}

	options := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.ChannelCount,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   cfg.BufferSize,
	}

	log.Debug("initializing oto engine",
		"sample_rate", options.SampleRate,
		"channels", options.ChannelCount,
		"buffer_size", options.BufferSize)

	ctx, readyChan, err := oto.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("creating audio context: %w", err)
	}

	select {
	case <-readyChan:
	case <-time.After(cfg.ReadyTimeout):
		// oto v3 contexts have no Close; the stuck one is left for GC.
		return nil, fmt.Errorf("%w: device not ready after %v", sound.ErrEngineNotReady, cfg.ReadyTimeout)
	}

	log.Info("oto engine ready", "sample_rate", cfg.SampleRate, "channels", cfg.ChannelCount)
	return &Engine{ctx: ctx, cfg: cfg}, nil
}

// NewNode creates a named attachment point. The engine has no spatial
// transform hierarchy, so nodes carry ownership and naming only.
func (e *Engine) NewNode(name string) (sound.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, sound.ErrEngineClosed
	}
	return &node{name: name}, nil
}

// NewEmitter creates a playback emitter.
func (e *Engine) NewEmitter(parent sound.Node) (sound.Emitter, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, sound.ErrEngineClosed
	}

	em := &Emitter{
		engine: e,
		parent: parent,
		volume: 1,
		pitch:  1,
		blend:  1,
	}
	e.emitters = append(e.emitters, em)
	return em, nil
}

// SetListener places the listener used for distance attenuation.
func (e *Engine) SetListener(at sound.Vec3) {
	e.mu.Lock()
	e.listener = at
	e.mu.Unlock()
}

// Listener returns the current listener position.
func (e *Engine) Listener() sound.Vec3 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listener
}

// SampleRate returns the engine output sample rate.
func (e *Engine) SampleRate() int { return e.cfg.SampleRate }

// ChannelCount returns the engine output channel count.
func (e *Engine) ChannelCount() int { return e.cfg.ChannelCount }

// Close shuts down every emitter. The oto context itself has no Close in
// v3 and is reclaimed by the garbage collector.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	emitters := e.emitters
	e.emitters = nil
	e.mu.Unlock()

	for _, em := range emitters {
		em.Close()
	}
	log.Debug("oto engine closed", "emitters", len(emitters))
	return nil
}

// node is a flat scene node: a named ownership handle.
type node struct {
	name   string
	closed bool
}

func (n *node) Name() string { return n.name }

func (n *node) Close() error {
	n.closed = true
	return nil
}

// gainFor computes the playback gain for a spatialized source: volume
// scaled by clamped inverse-distance attenuation, interpolated by spatial
// blend (0 = no attenuation, 1 = fully positional).
func gainFor(volume, blend float64, listener, at sound.Vec3, minDistance float64) float64 {
	if blend <= 0 {
		return volume
	}
	if minDistance <= 0 {
		minDistance = 1
	}
	dist := at.Sub(listener).Len()
	attenuation := 1.0
	if dist > minDistance {
		attenuation = minDistance / dist
	}
	spatial := volume * attenuation
	return volume + (spatial-volume)*blend
}
