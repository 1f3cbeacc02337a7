package sound

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads sound configuration from Viper, applies
// NAUDIO_* environment overrides, and validates the result.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("sound.engine") {
		cfg.Engine = viper.GetString("sound.engine")
	}
	if viper.IsSet("sound.pooling") {
		cfg.Pooling = viper.GetBool("sound.pooling")
	}
	if viper.IsSet("sound.pool_size") {
		cfg.PoolSize = viper.GetInt("sound.pool_size")
	}
	if viper.IsSet("sound.skip_busy") {
		cfg.SkipBusy = viper.GetBool("sound.skip_busy")
	}
	if viper.IsSet("sound.spatializer") {
		cfg.Spatializer = viper.GetBool("sound.spatializer")
	}
	if viper.IsSet("sound.master_volume") {
		cfg.MasterVolume = viper.GetFloat64("sound.master_volume")
	}
	if viper.IsSet("sound.destroy_margin") {
		cfg.DestroyMargin = viper.GetDuration("sound.destroy_margin")
	}
	if viper.IsSet("sound.sample_rate") {
		cfg.SampleRate = viper.GetInt("sound.sample_rate")
	}

	// Environment takes precedence over the config file.
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing sound environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid sound configuration: %w", err)
	}

	return cfg, nil
}
