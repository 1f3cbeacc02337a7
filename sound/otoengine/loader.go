package otoengine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/nothke/naudio/sound"
)

// decoded is the intermediate form every decoder produces before the clip
// is converted to the engine output format.
type decoded struct {
	samples    []int16
	sampleRate int
	channels   int
}

// Loader decodes audio files into clips at a fixed output format. It has
// no dependency on a live audio device, so clips can be decoded for any
// sound.Engine implementation.
type Loader struct {
	SampleRate   int
	ChannelCount int
}

// NewLoader returns a loader producing clips at the given output format.
func NewLoader(sampleRate, channelCount int) *Loader {
	return &Loader{SampleRate: sampleRate, ChannelCount: channelCount}
}

// Loader returns a clip loader matching the engine output format.
func (e *Engine) Loader() *Loader {
	return NewLoader(e.cfg.SampleRate, e.cfg.ChannelCount)
}

// LoadClip reads an audio file, decodes it by extension and converts the
// result to the engine's sample rate and channel count. Supported formats
// are wav, mp3 and ogg.
func (e *Engine) LoadClip(path string) (*sound.Clip, error) {
	return e.Loader().LoadClip(path)
}

// LoadClip reads an audio file and decodes it by extension.
func (l *Loader) LoadClip(path string) (*sound.Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening clip: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	clip, err := l.DecodeClip(name, filepath.Ext(path), f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return clip, nil
}

// DecodeClip decodes a stream with the decoder matching ext (".wav",
// ".mp3" or ".ogg") and returns a clip in the loader's output format.
func (l *Loader) DecodeClip(name, ext string, r io.ReadSeeker) (*sound.Clip, error) {
	var (
		d   decoded
		err error
	)
	switch strings.ToLower(ext) {
	case ".wav", ".wave":
		d, err = decodeWAV(r)
	case ".mp3":
		d, err = decodeMP3(r)
	case ".ogg", ".oga":
		d, err = decodeOgg(r)
	default:
		return nil, fmt.Errorf("%w: extension %q", sound.ErrUnsupportedClipData, ext)
	}
	if err != nil {
		return nil, err
	}
	if d.sampleRate <= 0 || d.channels <= 0 || len(d.samples) == 0 {
		return nil, fmt.Errorf("%w: empty or malformed stream", sound.ErrUnsupportedClipData)
	}

	samples := remixChannels(d.samples, d.channels, l.ChannelCount)
	samples = resampleLinear(samples, l.ChannelCount, d.sampleRate, l.SampleRate)

	frames := len(samples) / l.ChannelCount
	clip := &sound.Clip{
		Name:       name,
		Data:       samplesToPCM16(samples),
		Format:     sound.FormatPCM16,
		SampleRate: l.SampleRate,
		Channels:   l.ChannelCount,
		Duration:   time.Duration(frames) * time.Second / time.Duration(l.SampleRate),
	}

	log.Debug("clip decoded",
		"name", name,
		"source_rate", d.sampleRate,
		"source_channels", d.channels,
		"duration", clip.Duration)
	return clip, nil
}

func decodeWAV(r io.ReadSeeker) (decoded, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return decoded{}, fmt.Errorf("%w: not a wav file", sound.ErrUnsupportedClipData)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return decoded{}, fmt.Errorf("reading wav data: %w", err)
	}

	samples := make([]int16, len(buf.Data))
	switch {
	case buf.SourceBitDepth == 8:
		// 8-bit wav stores unsigned samples; recenter before scaling up.
		for i, v := range buf.Data {
			samples[i] = int16(v-128) << 8
		}
	case buf.SourceBitDepth > 16:
		shift := uint(buf.SourceBitDepth - 16)
		for i, v := range buf.Data {
			samples[i] = int16(v >> shift)
		}
	default:
		for i, v := range buf.Data {
			samples[i] = int16(v)
		}
	}

	return decoded{
		samples:    samples,
		sampleRate: buf.Format.SampleRate,
		channels:   buf.Format.NumChannels,
	}, nil
}

func decodeMP3(r io.ReadSeeker) (decoded, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return decoded{}, fmt.Errorf("%w: %v", sound.ErrUnsupportedClipData, err)
	}

	// go-mp3 always emits 16-bit little-endian stereo.
	data, err := io.ReadAll(dec)
	if err != nil {
		return decoded{}, fmt.Errorf("reading mp3 data: %w", err)
	}

	return decoded{
		samples:    pcm16ToSamples(data),
		sampleRate: dec.SampleRate(),
		channels:   2,
	}, nil
}

func decodeOgg(r io.ReadSeeker) (decoded, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return decoded{}, fmt.Errorf("%w: %v", sound.ErrUnsupportedClipData, err)
	}

	return decoded{
		samples:    float32ToSamples(data),
		sampleRate: format.SampleRate,
		channels:   format.Channels,
	}, nil
}
