package otoengine

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/nothke/naudio/sound"
)

// Emitter implements sound.Emitter on an oto player. Setters only record
// state; everything takes effect when Play builds the next player.
type Emitter struct {
	engine *Engine
	parent sound.Node

	mu          sync.Mutex
	clip        *sound.Clip
	volume      float64
	pitch       float64
	blend       float64
	spread      float64
	minDistance float64
	doppler     float64
	loop        bool
	spatialized bool
	route       sound.Route
	position    sound.Vec3
	seekOffset  time.Duration

	player   *oto.Player
	oneShots []*oto.Player
	closed   bool
}

// SetClip assigns the clip to play.
func (e *Emitter) SetClip(clip *sound.Clip) {
	e.mu.Lock()
	e.clip = clip
	e.seekOffset = 0
	e.mu.Unlock()
}

// Clip returns the assigned clip.
func (e *Emitter) Clip() *sound.Clip {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clip
}

// SetVolume sets the playback gain.
func (e *Emitter) SetVolume(volume float64) {
	e.mu.Lock()
	e.volume = volume
	if e.player != nil {
		e.player.SetVolume(e.currentGain())
	}
	e.mu.Unlock()
}

// SetPitch sets the playback rate multiplier.
func (e *Emitter) SetPitch(pitch float64) {
	e.mu.Lock()
	e.pitch = pitch
	e.mu.Unlock()
}

// SetSpatialBlend interpolates between non-positional and positional gain.
func (e *Emitter) SetSpatialBlend(blend float64) {
	e.mu.Lock()
	e.blend = blend
	e.mu.Unlock()
}

// SetSpread records the angular spread. The gain model has no panning, so
// spread does not affect output.
func (e *Emitter) SetSpread(spread float64) {
	e.mu.Lock()
	e.spread = spread
	e.mu.Unlock()
}

// SetMinDistance sets the distance below which no attenuation applies.
func (e *Emitter) SetMinDistance(distance float64) {
	e.mu.Lock()
	e.minDistance = distance
	e.mu.Unlock()
}

// SetLoop toggles looping playback.
func (e *Emitter) SetLoop(loop bool) {
	e.mu.Lock()
	e.loop = loop
	e.mu.Unlock()
}

// SetDoppler records the doppler factor. The engine has no doppler.
func (e *Emitter) SetDoppler(factor float64) {
	e.mu.Lock()
	e.doppler = factor
	e.mu.Unlock()
}

// SetSpatialized records the spatializer flag. The engine has no
// spatializer plugin.
func (e *Emitter) SetSpatialized(enabled bool) {
	e.mu.Lock()
	e.spatialized = enabled
	e.mu.Unlock()
}

// SetRoute records the output route. The engine has a single output bus.
func (e *Emitter) SetRoute(route sound.Route) {
	e.mu.Lock()
	e.route = route
	e.mu.Unlock()
}

// SetPosition places the emitter in world space.
func (e *Emitter) SetPosition(at sound.Vec3) {
	e.mu.Lock()
	e.position = at
	if e.player != nil {
		e.player.SetVolume(e.currentGain())
	}
	e.mu.Unlock()
}

// SetParent attaches the emitter under a node. Nodes are flat here, so
// the attachment is ownership bookkeeping only.
func (e *Emitter) SetParent(parent sound.Node) {
	e.mu.Lock()
	e.parent = parent
	e.mu.Unlock()
}

// Play starts playback of the assigned clip from the current seek
// position, cutting off any playback already running on this emitter.
func (e *Emitter) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.clip == nil {
		return
	}

	data, err := e.renderLocked()
	if err != nil {
		log.Debug("emitter play skipped", "clip", e.clip.Name, "error", err)
		return
	}

	if e.player != nil {
		e.player.Close()
	}

	var r io.Reader = bytes.NewReader(data)
	if e.loop {
		r = &loopReader{data: data}
	}

	e.player = e.engine.ctx.NewPlayer(r)
	e.player.SetVolume(e.currentGain())
	e.player.Play()
	e.seekOffset = 0
}

// PlayOneShot layers an untracked playback of clip onto this emitter,
// scaled by volumeScale. Finished one-shot players are swept on each
// call; the engine mixes whatever overlaps.
func (e *Emitter) PlayOneShot(clip *sound.Clip, volumeScale float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || clip == nil {
		return
	}

	data, err := e.engine.render(clip, 1, 0)
	if err != nil {
		log.Debug("one-shot skipped", "clip", clip.Name, "error", err)
		return
	}

	kept := e.oneShots[:0]
	for _, p := range e.oneShots {
		if p.IsPlaying() {
			kept = append(kept, p)
		} else {
			p.Close()
		}
	}
	e.oneShots = kept

	if volumeScale < 0 {
		volumeScale = 0
	}
	p := e.engine.ctx.NewPlayer(bytes.NewReader(data))
	p.SetVolume(volumeScale)
	p.Play()
	e.oneShots = append(e.oneShots, p)
}

// Stop halts playback and resets the seek position.
func (e *Emitter) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.player != nil {
		e.player.Close()
		e.player = nil
	}
	e.seekOffset = 0
}

// Seek sets the position the next Play starts from.
func (e *Emitter) Seek(offset time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return sound.ErrEmitterClosed
	}
	if e.clip == nil {
		return sound.ErrNoClip
	}
	if offset < 0 || offset >= e.clip.Duration {
		return fmt.Errorf("%w: %v of %v", sound.ErrSeekOutOfRange, offset, e.clip.Duration)
	}
	e.seekOffset = offset
	return nil
}

// IsPlaying reports whether the emitter's own playback is running.
// Layered one-shots are untracked and do not count.
func (e *Emitter) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player != nil && e.player.IsPlaying()
}

// Close releases the emitter and every player it still holds.
func (e *Emitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if e.player != nil {
		e.player.Close()
		e.player = nil
	}
	for _, p := range e.oneShots {
		p.Close()
	}
	e.oneShots = nil
	return nil
}

// currentGain computes the player gain from volume, blend and listener
// distance. Callers hold e.mu.
func (e *Emitter) currentGain() float64 {
	g := gainFor(e.volume, e.blend, e.engine.Listener(), e.position, e.minDistance)
	if g < 0 {
		return 0
	}
	return g
}

// renderLocked produces the PCM the next player will read: the assigned
// clip converted to the engine format, sliced at the seek offset and
// resampled for pitch. Callers hold e.mu.
func (e *Emitter) renderLocked() ([]byte, error) {
	return e.engine.render(e.clip, e.pitch, e.seekOffset)
}

// render converts clip data to engine-format PCM with pitch and seek
// applied. A unit-pitch, zero-seek clip already in the engine format is
// passed through without copying.
func (e *Engine) render(clip *sound.Clip, pitch float64, seek time.Duration) ([]byte, error) {
	if clip.Format != sound.FormatPCM16 {
		return nil, fmt.Errorf("%w: clip %q", sound.ErrUnsupportedClipData, clip.Name)
	}
	if clip.SampleRate <= 0 || clip.Channels <= 0 {
		return nil, fmt.Errorf("%w: clip %q has no format", sound.ErrUnsupportedClipData, clip.Name)
	}
	if pitch <= 0 {
		pitch = 1
	}

	matches := clip.SampleRate == e.cfg.SampleRate && clip.Channels == e.cfg.ChannelCount
	if matches && pitch == 1 && seek == 0 {
		return clip.Data, nil
	}

	samples := pcm16ToSamples(clip.Data)
	channels := clip.Channels

	if seek > 0 {
		frame := int(float64(seek) / float64(time.Second) * float64(clip.SampleRate))
		if off := frame * channels; off < len(samples) {
			samples = samples[off:]
		} else {
			samples = nil
		}
	}

	samples = remixChannels(samples, channels, e.cfg.ChannelCount)
	channels = e.cfg.ChannelCount

	// Pitch folds into the rate conversion: playing srcRate/pitch frames
	// per source second at the device rate shifts pitch and duration
	// together.
	dstRate := int(float64(e.cfg.SampleRate) / pitch)
	samples = resampleLinear(samples, channels, clip.SampleRate, dstRate)

	return samplesToPCM16(samples), nil
}

// loopReader replays its data forever.
type loopReader struct {
	data []byte
	pos  int
}

func (l *loopReader) Read(p []byte) (int, error) {
	if len(l.data) == 0 {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) {
		c := copy(p[n:], l.data[l.pos:])
		n += c
		l.pos += c
		if l.pos == len(l.data) {
			l.pos = 0
		}
	}
	return n, nil
}
