package sound

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPoolSize is the slot pool capacity used when none is configured.
const DefaultPoolSize = 50

// DefaultDestroyMargin is the extra delay added to ephemeral-emitter
// teardown to tolerate playback engine latency, so a sound is never
// truncated by its own cleanup.
const DefaultDestroyMargin = 200 * time.Millisecond

// Config contains all sound system configuration. Allocation strategy and
// spatializer use are runtime choices here, not build variants.
type Config struct {
	// Engine selects the playback engine implementation.
	Engine string `yaml:"engine" env:"NAUDIO_ENGINE"`

	// Pooling selects pooled emitters over per-play ephemeral ones.
	Pooling bool `yaml:"pooling" env:"NAUDIO_POOLING"`

	// PoolSize is the fixed capacity of the slot pool.
	PoolSize int `yaml:"pool_size" env:"NAUDIO_POOL_SIZE"`

	// SkipBusy makes acquisition rotate past emitters that are still
	// playing. When every slot is busy the oldest playback is cut off.
	SkipBusy bool `yaml:"skip_busy" env:"NAUDIO_SKIP_BUSY"`

	// Spatializer enables the engine's spatializer on pooled and
	// ephemeral emitters.
	Spatializer bool `yaml:"spatializer" env:"NAUDIO_SPATIALIZER"`

	// MasterVolume scales every dispatched playback (0.0 to 2.0).
	MasterVolume float64 `yaml:"master_volume" env:"NAUDIO_MASTER_VOLUME"`

	// DestroyMargin is added to clip duration when scheduling ephemeral
	// emitter teardown.
	DestroyMargin time.Duration `yaml:"destroy_margin" env:"NAUDIO_DESTROY_MARGIN"`

	// SampleRate is the output sample rate for engines that need one.
	SampleRate int `yaml:"sample_rate" env:"NAUDIO_SAMPLE_RATE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:        "oto",
		Pooling:       true,
		PoolSize:      DefaultPoolSize,
		SkipBusy:      false,
		Spatializer:   true,
		MasterVolume:  1.0,
		DestroyMargin: DefaultDestroyMargin,
		SampleRate:    44100,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validEngines := []string{"oto", "mock"}
	engineValid := false
	for _, e := range validEngines {
		if strings.EqualFold(c.Engine, e) {
			engineValid = true
			c.Engine = strings.ToLower(c.Engine)
			break
		}
	}
	if !engineValid {
		return fmt.Errorf("%w: engine '%s' must be one of %v", ErrInvalidConfig, c.Engine, validEngines)
	}

	if c.PoolSize < 1 || c.PoolSize > 1024 {
		return fmt.Errorf("%w: pool size must be between 1 and 1024, got %d", ErrInvalidConfig, c.PoolSize)
	}

	if c.MasterVolume < 0.0 || c.MasterVolume > 2.0 {
		return fmt.Errorf("%w: master volume must be between 0.0 and 2.0, got %f", ErrInvalidConfig, c.MasterVolume)
	}

	if c.DestroyMargin < 0 || c.DestroyMargin > 5*time.Second {
		return fmt.Errorf("%w: destroy margin must be between 0s and 5s, got %v", ErrInvalidConfig, c.DestroyMargin)
	}

	validSampleRates := []int{8000, 16000, 22050, 24000, 44100, 48000}
	sampleRateValid := false
	for _, sr := range validSampleRates {
		if c.SampleRate == sr {
			sampleRateValid = true
			break
		}
	}
	if !sampleRateValid {
		return fmt.Errorf("%w: invalid sample rate %d: must be one of %v", ErrInvalidConfig, c.SampleRate, validSampleRates)
	}

	return nil
}

// PlayParams holds per-call playback parameters.
type PlayParams struct {
	// Volume is the playback gain (0.0 to 2.0). Zero rejects the play
	// request.
	Volume float64

	// Pitch is the playback rate multiplier. Zero rejects the play
	// request.
	Pitch float64

	// Spread is the angular spread of the perceived source.
	Spread float64

	// MinDistance is the falloff distance below which no attenuation
	// applies.
	MinDistance float64

	// Route selects the output route; empty means the engine default.
	Route Route

	// Parent optionally attaches the emitter under a scene node after its
	// world position is set.
	Parent Node

	// NoRepeat makes clip-set playback never select the same clip twice
	// in a row.
	NoRepeat bool
}

// DefaultPlayParams returns the parameters used for a plain one-shot.
func DefaultPlayParams() PlayParams {
	return PlayParams{
		Volume:      1.0,
		Pitch:       1.0,
		Spread:      0.0,
		MinDistance: 1.0,
	}
}
