package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables (prefix ORCH_, dots as underscores)
// take precedence over file values, which take precedence over defaults.
// Returns a populated Config or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("ORCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env and defaults carry the load.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("billing.fx_rate", 6.0)
	v.SetDefault("billing.margin_multiplier", 2.5)
	v.SetDefault("billing.credit_value", 1.0)
	v.SetDefault("billing.min_task_cost", 10)
	v.SetDefault("billing.renewal_days", 30)

	v.SetDefault("engine.tick_ms", 2000)
	v.SetDefault("engine.backoff_base_ms", 1000)
	v.SetDefault("engine.max_retries", 3)

	v.SetDefault("health.probe_interval_ms", 10000)
	v.SetDefault("health.latency_threshold_ms", 1500)
	v.SetDefault("health.breaker_threshold", 5)
	v.SetDefault("health.degraded_floor", 40)

	v.SetDefault("margin.interval_minutes", 60)

	v.SetDefault("recovery.checkout_timeout_ms", 900000)
	v.SetDefault("recovery.sweep_interval_ms", 60000)

	v.SetDefault("redis.enqueue_limit", 30)
	v.SetDefault("redis.enqueue_window_ms", 60000)
}
