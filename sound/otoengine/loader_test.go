package otoengine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/nothke/naudio/sound"
)

func testEngine() *Engine {
	return &Engine{cfg: Config{SampleRate: 44100, ChannelCount: 2}}
}

// writeTestWAV writes one second of mono 16-bit PCM at the given rate.
func writeTestWAV(t *testing.T, rate int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	data := make([]int, rate)
	for i := range data {
		data[i] = (i % 200) * 100
	}

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadClipWAV(t *testing.T) {
	e := testEngine()
	path := writeTestWAV(t, 22050)

	clip, err := e.LoadClip(path)
	if err != nil {
		t.Fatalf("LoadClip: %v", err)
	}

	if clip.Name != "tone" {
		t.Errorf("Name = %q, want %q", clip.Name, "tone")
	}
	if clip.Format != sound.FormatPCM16 {
		t.Errorf("Format = %v, want FormatPCM16", clip.Format)
	}
	if clip.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", clip.SampleRate)
	}
	if clip.Channels != 2 {
		t.Errorf("Channels = %d, want 2", clip.Channels)
	}
	if len(clip.Data) == 0 {
		t.Fatal("Data is empty")
	}

	// One second of source audio should survive rate and channel
	// conversion within a frame of rounding.
	if clip.Duration < 990*time.Millisecond || clip.Duration > 1010*time.Millisecond {
		t.Errorf("Duration = %v, want ~1s", clip.Duration)
	}
}

func TestLoadClipNativeRatePassthrough(t *testing.T) {
	e := testEngine()
	path := writeTestWAV(t, 44100)

	clip, err := e.LoadClip(path)
	if err != nil {
		t.Fatalf("LoadClip: %v", err)
	}

	// Mono source remixed to stereo at the native rate: one second of
	// stereo 16-bit frames.
	if want := 44100 * 2 * 2; len(clip.Data) != want {
		t.Errorf("len(Data) = %d, want %d", len(clip.Data), want)
	}
}

func TestLoadClipWAV8Bit(t *testing.T) {
	e := testEngine()

	path := filepath.Join(t.TempDir(), "blip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	// 8-bit wav is unsigned: 128 is silence, 0 and 255 are the extremes.
	enc := wav.NewEncoder(f, 44100, 8, 1, 1)
	buf := &audio.IntBuffer{
		Data:           []int{128, 255, 0, 128},
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		SourceBitDepth: 8,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	clip, err := e.LoadClip(path)
	if err != nil {
		t.Fatalf("LoadClip: %v", err)
	}

	// Mono at the native rate is duplicated to stereo without resampling,
	// so the decoded samples map directly: silence recenters to zero and
	// the extremes land near full scale.
	got := pcm16ToSamples(clip.Data)
	want := []int16{0, 0, 32512, 32512, -32768, -32768, 0, 0}
	if len(got) != len(want) {
		t.Fatalf("len(samples) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestLoadClipErrors(t *testing.T) {
	e := testEngine()

	t.Run("missing file", func(t *testing.T) {
		if _, err := e.LoadClip(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "clip.flac")
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := e.LoadClip(path)
		if !errors.Is(err, sound.ErrUnsupportedClipData) {
			t.Errorf("error = %v, want ErrUnsupportedClipData", err)
		}
	})

	t.Run("garbage wav", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "clip.wav")
		if err := os.WriteFile(path, []byte("not a wav"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := e.LoadClip(path)
		if !errors.Is(err, sound.ErrUnsupportedClipData) {
			t.Errorf("error = %v, want ErrUnsupportedClipData", err)
		}
	})
}

func TestRenderPitchShortensOutput(t *testing.T) {
	e := testEngine()

	// One second stereo clip already in the engine format.
	samples := make([]int16, 44100*2)
	clip := &sound.Clip{
		Name:       "ramp",
		Data:       samplesToPCM16(samples),
		Format:     sound.FormatPCM16,
		SampleRate: 44100,
		Channels:   2,
		Duration:   time.Second,
	}

	t.Run("unit pitch passthrough", func(t *testing.T) {
		data, err := e.render(clip, 1, 0)
		if err != nil {
			t.Fatal(err)
		}
		if &data[0] != &clip.Data[0] {
			t.Error("unit pitch should pass clip data through without copying")
		}
	})

	t.Run("double pitch halves data", func(t *testing.T) {
		data, err := e.render(clip, 2, 0)
		if err != nil {
			t.Fatal(err)
		}
		half := len(clip.Data) / 2
		if data == nil || len(data) < half-1000 || len(data) > half+1000 {
			t.Errorf("len = %d, want ~%d", len(data), half)
		}
	})

	t.Run("seek drops leading frames", func(t *testing.T) {
		data, err := e.render(clip, 1, 500*time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}
		half := len(clip.Data) / 2
		if len(data) < half-1000 || len(data) > half+1000 {
			t.Errorf("len = %d, want ~%d", len(data), half)
		}
	})

	t.Run("rejects float clip data", func(t *testing.T) {
		bad := &sound.Clip{Name: "f32", Format: sound.FormatFloat32, SampleRate: 44100, Channels: 2}
		if _, err := e.render(bad, 1, 0); !errors.Is(err, sound.ErrUnsupportedClipData) {
			t.Errorf("error = %v, want ErrUnsupportedClipData", err)
		}
	})
}
