package sound

import (
	"fmt"
	"sync"
	"time"
)

// MockEngine implements Engine for testing. It simulates playback without
// producing sound and records everything done to it, so tests can assert
// on emitter state and call order. All state is mutex-guarded: the
// dispatcher's reaper closes emitters from its own goroutine.
type MockEngine struct {
	mu       sync.RWMutex
	nodes    []*MockNode
	emitters []*MockEmitter

	// Test configuration
	FailNewNode    error // returned by NewNode when set
	FailNewEmitter error // returned by NewEmitter when set

	closed bool
}

// NewMockEngine creates a mock playback engine.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// NewNode creates a recorded scene node.
func (e *MockEngine) NewNode(name string) (Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.FailNewNode != nil {
		return nil, e.FailNewNode
	}
	n := &MockNode{name: name}
	e.nodes = append(e.nodes, n)
	return n, nil
}

// NewEmitter creates a recorded emitter attached to parent.
func (e *MockEngine) NewEmitter(parent Node) (Emitter, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.FailNewEmitter != nil {
		return nil, e.FailNewEmitter
	}
	em := &MockEmitter{id: len(e.emitters), parent: parent}
	e.emitters = append(e.emitters, em)
	return em, nil
}

// Close marks the engine as shut down.
func (e *MockEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

// Nodes returns every node the engine created, in creation order.
func (e *MockEngine) Nodes() []*MockNode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	nodes := make([]*MockNode, len(e.nodes))
	copy(nodes, e.nodes)
	return nodes
}

// Emitters returns every emitter the engine created, in creation order.
func (e *MockEngine) Emitters() []*MockEmitter {
	e.mu.RLock()
	defer e.mu.RUnlock()
	emitters := make([]*MockEmitter, len(e.emitters))
	copy(emitters, e.emitters)
	return emitters
}

// MockNode is a recorded scene node.
type MockNode struct {
	mu     sync.Mutex
	name   string
	closed bool
}

// Name returns the node's name.
func (n *MockNode) Name() string { return n.name }

// Close marks the node as released.
func (n *MockNode) Close() error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	return nil
}

// Closed reports whether the node was released.
func (n *MockNode) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// MockOneShot records a single PlayOneShot invocation.
type MockOneShot struct {
	Clip        *Clip
	VolumeScale float64
}

// MockEmitter is a recorded emitter. Playback state is simulated: Play
// marks it playing until FinishPlayback or Stop.
type MockEmitter struct {
	mu sync.RWMutex

	id     int
	parent Node

	clip        *Clip
	volume      float64
	pitch       float64
	blend       float64
	spread      float64
	minDistance float64
	doppler     float64
	loop        bool
	spatialized bool
	route       Route
	position    Vec3
	seekOffset  time.Duration

	playing bool
	closed  bool

	oneShots []MockOneShot
	calls    []string
}

// record appends to the call log. Callers hold m.mu.
func (m *MockEmitter) record(call string) {
	m.calls = append(m.calls, call)
}

// ID returns the emitter's creation index within its engine.
func (m *MockEmitter) ID() int { return m.id }

// SetClip assigns the clip to play.
func (m *MockEmitter) SetClip(clip *Clip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetClip")
	m.clip = clip
}

// Clip returns the assigned clip.
func (m *MockEmitter) Clip() *Clip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clip
}

// SetVolume records the playback gain.
func (m *MockEmitter) SetVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetVolume")
	m.volume = volume
}

// SetPitch records the playback rate.
func (m *MockEmitter) SetPitch(pitch float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetPitch")
	m.pitch = pitch
}

// SetSpatialBlend records the 2D/3D blend.
func (m *MockEmitter) SetSpatialBlend(blend float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetSpatialBlend")
	m.blend = blend
}

// SetSpread records the angular spread.
func (m *MockEmitter) SetSpread(spread float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetSpread")
	m.spread = spread
}

// SetMinDistance records the falloff distance.
func (m *MockEmitter) SetMinDistance(distance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetMinDistance")
	m.minDistance = distance
}

// SetLoop records the loop flag.
func (m *MockEmitter) SetLoop(loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetLoop")
	m.loop = loop
}

// SetDoppler records the doppler factor.
func (m *MockEmitter) SetDoppler(factor float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetDoppler")
	m.doppler = factor
}

// SetSpatialized records the spatializer flag.
func (m *MockEmitter) SetSpatialized(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetSpatialized")
	m.spatialized = enabled
}

// SetRoute records the output route.
func (m *MockEmitter) SetRoute(route Route) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetRoute")
	m.route = route
}

// SetPosition records the world position.
func (m *MockEmitter) SetPosition(at Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetPosition")
	m.position = at
}

// SetParent records the scene attachment.
func (m *MockEmitter) SetParent(parent Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetParent")
	m.parent = parent
}

// Play marks the emitter as playing.
func (m *MockEmitter) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Play")
	if m.closed {
		return
	}
	m.playing = true
}

// PlayOneShot records a layered one-shot.
func (m *MockEmitter) PlayOneShot(clip *Clip, volumeScale float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("PlayOneShot")
	if m.closed {
		return
	}
	m.oneShots = append(m.oneShots, MockOneShot{Clip: clip, VolumeScale: volumeScale})
}

// Stop halts simulated playback.
func (m *MockEmitter) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Stop")
	m.playing = false
	m.seekOffset = 0
}

// Seek records the playback offset.
func (m *MockEmitter) Seek(offset time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Seek")
	if m.closed {
		return ErrEmitterClosed
	}
	if m.clip == nil {
		return ErrNoClip
	}
	if offset < 0 || offset >= m.clip.Duration {
		return fmt.Errorf("%w: %v of %v", ErrSeekOutOfRange, offset, m.clip.Duration)
	}
	m.seekOffset = offset
	return nil
}

// IsPlaying reports simulated playback state.
func (m *MockEmitter) IsPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playing && !m.closed
}

// Close marks the emitter as released.
func (m *MockEmitter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Close")
	m.playing = false
	m.closed = true
	return nil
}

// FinishPlayback simulates the clip reaching its end.
func (m *MockEmitter) FinishPlayback() {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
}

// Closed reports whether the emitter was released.
func (m *MockEmitter) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Parent returns the current scene attachment.
func (m *MockEmitter) Parent() Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parent
}

// Volume returns the recorded gain.
func (m *MockEmitter) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// Pitch returns the recorded playback rate.
func (m *MockEmitter) Pitch() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pitch
}

// SpatialBlend returns the recorded 2D/3D blend.
func (m *MockEmitter) SpatialBlend() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blend
}

// Spread returns the recorded angular spread.
func (m *MockEmitter) Spread() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.spread
}

// MinDistance returns the recorded falloff distance.
func (m *MockEmitter) MinDistance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.minDistance
}

// Doppler returns the recorded doppler factor.
func (m *MockEmitter) Doppler() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doppler
}

// Loop returns the recorded loop flag.
func (m *MockEmitter) Loop() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loop
}

// Spatialized returns the recorded spatializer flag.
func (m *MockEmitter) Spatialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.spatialized
}

// RouteValue returns the recorded output route.
func (m *MockEmitter) RouteValue() Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.route
}

// Position returns the recorded world position.
func (m *MockEmitter) Position() Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.position
}

// SeekOffset returns the recorded playback offset.
func (m *MockEmitter) SeekOffset() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seekOffset
}

// OneShots returns every layered one-shot, in call order.
func (m *MockEmitter) OneShots() []MockOneShot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	shots := make([]MockOneShot, len(m.oneShots))
	copy(shots, m.oneShots)
	return shots
}

// Calls returns the ordered method call log.
func (m *MockEmitter) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]string, len(m.calls))
	copy(calls, m.calls)
	return calls
}
