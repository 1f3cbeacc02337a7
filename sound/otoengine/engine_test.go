package otoengine

import (
	"testing"

	"github.com/nothke/naudio/sound"
)

func TestGainFor(t *testing.T) {
	origin := sound.Vec3{}

	tests := []struct {
		name        string
		volume      float64
		blend       float64
		at          sound.Vec3
		minDistance float64
		want        float64
	}{
		{
			name:   "zero blend ignores distance",
			volume: 0.8, blend: 0,
			at:          sound.Vec3{X: 100},
			minDistance: 1,
			want:        0.8,
		},
		{
			name:   "inside min distance no attenuation",
			volume: 1, blend: 1,
			at:          sound.Vec3{X: 0.5},
			minDistance: 1,
			want:        1,
		},
		{
			name:   "full blend attenuates by inverse distance",
			volume: 1, blend: 1,
			at:          sound.Vec3{X: 4},
			minDistance: 2,
			want:        0.5,
		},
		{
			name:   "half blend halves the attenuation",
			volume: 1, blend: 0.5,
			at:          sound.Vec3{X: 4},
			minDistance: 2,
			want:        0.75,
		},
		{
			name:   "non-positive min distance clamps to one",
			volume: 1, blend: 1,
			at:          sound.Vec3{X: 2},
			minDistance: 0,
			want:        0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gainFor(tt.volume, tt.blend, origin, tt.at, tt.minDistance)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("gainFor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero sample rate", cfg: Config{SampleRate: 0, ChannelCount: 2}},
		{name: "zero channels", cfg: Config{SampleRate: 44100, ChannelCount: 0}},
		{name: "too many channels", cfg: Config{SampleRate: 44100, ChannelCount: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error for invalid config")
			}
		})
	}
}
