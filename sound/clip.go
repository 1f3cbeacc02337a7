package sound

import (
	"math/rand/v2"
	"time"
)

// Format represents the sample format of clip data.
type Format int

const (
	// FormatPCM16 is interleaved 16-bit little-endian PCM.
	FormatPCM16 Format = iota
	// FormatFloat32 is interleaved 32-bit float PCM.
	FormatFloat32
)

// Clip holds decoded audio data ready for playback.
type Clip struct {
	Name       string        // Display name, usually the source file base name
	Data       []byte        // Raw interleaved sample data
	Format     Format        // Sample format of Data
	SampleRate int           // Sample rate in Hz
	Channels   int           // Number of interleaved channels
	Duration   time.Duration // Playback duration at pitch 1.0
}

// ClipSet is an ordered group of clips with random selection. The set owns
// its selection state, so no-repeat picking never mutates caller data:
// repeated PickNoRepeat calls return a uniformly random clip that is never
// the one returned by the immediately preceding call.
type ClipSet struct {
	clips []*Clip
	last  int
}

// NewClipSet groups clips for random selection.
func NewClipSet(clips ...*Clip) *ClipSet {
	return &ClipSet{
		clips: clips,
		last:  -1,
	}
}

// Len returns the number of clips in the set.
func (s *ClipSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.clips)
}

// At returns the clip at index i.
func (s *ClipSet) At(i int) *Clip {
	return s.clips[i]
}

// Add appends clips to the set.
func (s *ClipSet) Add(clips ...*Clip) {
	s.clips = append(s.clips, clips...)
}

// Pick returns a uniformly random clip from the set, or nil when the set
// is empty.
func (s *ClipSet) Pick() *Clip {
	if s.Len() == 0 {
		return nil
	}
	i := rand.IntN(len(s.clips))
	s.last = i
	return s.clips[i]
}

// PickNoRepeat returns a uniformly random clip that differs from the last
// pick. With a single clip it degenerates to Pick.
func (s *ClipSet) PickNoRepeat() *Clip {
	if s.Len() == 0 {
		return nil
	}
	if len(s.clips) == 1 || s.last < 0 {
		return s.Pick()
	}
	// Uniform over the other len-1 clips, skipping over the last pick.
	i := rand.IntN(len(s.clips) - 1)
	if i >= s.last {
		i++
	}
	s.last = i
	return s.clips[i]
}
