package sound

import (
	"math"
	"time"
)

// Engine is the playback collaborator. It creates scene nodes and emitters
// and owns the actual audio output; everything else in this package is
// bookkeeping on top of it.
type Engine interface {
	// NewNode creates a named attachment point in the engine's scene graph.
	NewNode(name string) (Node, error)

	// NewEmitter creates a playback emitter. A nil parent attaches the
	// emitter at the scene root.
	NewEmitter(parent Node) (Emitter, error)

	// Close shuts down the engine and releases audio resources.
	Close() error
}

// Node is a point in the engine's scene graph that emitters can be
// parented under.
type Node interface {
	// Name returns the node's display name.
	Name() string

	// Close detaches the node and releases it.
	Close() error
}

// Emitter is a reusable playback handle: it plays one clip at a time with
// configurable spatial, volume and pitch parameters.
//
// Setters are plain field writes on the engine side; they take effect on
// the next Play call at the latest. None of them block.
type Emitter interface {
	// SetClip assigns the clip to play.
	SetClip(clip *Clip)

	// Clip returns the currently assigned clip, or nil.
	Clip() *Clip

	// SetVolume sets the playback gain (0.0 to 2.0).
	SetVolume(volume float64)

	// SetPitch sets the playback rate multiplier (1.0 = normal).
	SetPitch(pitch float64)

	// SetSpatialBlend interpolates between non-positional (0.0) and fully
	// positional (1.0) playback.
	SetSpatialBlend(blend float64)

	// SetSpread sets the angular spread of the perceived source.
	SetSpread(spread float64)

	// SetMinDistance sets the distance below which no attenuation applies.
	SetMinDistance(distance float64)

	// SetLoop toggles looping playback.
	SetLoop(loop bool)

	// SetDoppler sets the doppler factor. The dispatcher always zeroes
	// this to avoid pitch artifacts from moving sources.
	SetDoppler(factor float64)

	// SetSpatialized toggles the engine's spatializer for this emitter.
	// Engines without a spatializer accept and ignore the flag.
	SetSpatialized(enabled bool)

	// SetRoute selects the output route (mixer group) for this emitter.
	SetRoute(route Route)

	// SetPosition places the emitter in world space. The dispatcher sets
	// the position before any re-parenting, so the value is always
	// evaluated in world coordinates.
	SetPosition(at Vec3)

	// SetParent attaches the emitter under the given node. A nil parent
	// detaches it back to the scene root.
	SetParent(parent Node)

	// Play starts playback of the assigned clip from the current seek
	// position. Calling Play on a playing emitter cuts off the previous
	// playback.
	Play()

	// PlayOneShot layers an untracked, overlapping playback of clip onto
	// this emitter's output, scaled by volumeScale. It does not touch the
	// emitter's assigned clip or any of its settings.
	PlayOneShot(clip *Clip, volumeScale float64)

	// Stop halts playback and resets the seek position.
	Stop()

	// Seek moves the playback position within the assigned clip.
	Seek(offset time.Duration) error

	// IsPlaying reports whether the emitter is currently playing.
	IsPlaying() bool

	// Close releases the emitter. A closed emitter ignores all further
	// operations.
	Close() error
}

// Route identifies an output route (mixer group) on the engine. The empty
// route is the engine default.
type Route string

// Vec3 is a position in world space.
type Vec3 struct {
	X, Y, Z float64
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Len returns the vector's magnitude.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}
