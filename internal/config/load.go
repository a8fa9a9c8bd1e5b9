package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. FORGE_SERVER_PORT or FORGE_LLM_GEMINI_API_KEY.
const EnvPrefix = "FORGE"

// Load configuration from environment variables and an optional config.yaml
// in the working directory. Environment variables take precedence over values
// from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path searches
// the working directory for config.yaml and tolerates its absence.
// Overrides, keyed like "database.driver", take precedence over every other
// source and are applied before validation.
func LoadFile(path string, overrides ...map[string]any) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound explicitly for Unmarshal to see them.
	for _, key := range []string{"database.url", "llm.gemini_api_key", "llm.prompt_template_path"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	for _, o := range overrides {
		for key, value := range o {
			v.Set(key, value)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "postgres")

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.7)

	v.SetDefault("generation.batch_size", 3)
	v.SetDefault("generation.max_titles", 20)
	v.SetDefault("generation.inter_request_delay_ms", 1000)
	v.SetDefault("generation.max_attempts", 3)
	v.SetDefault("generation.retry_delay_ms", 1000)
	v.SetDefault("generation.retry_backoff", "fixed")

	v.SetDefault("rate_limit.api.window_seconds", 15*60)
	v.SetDefault("rate_limit.api.max", 100)
	v.SetDefault("rate_limit.chat.window_seconds", 60)
	v.SetDefault("rate_limit.chat.max", 30)
	v.SetDefault("rate_limit.generation.window_seconds", 60)
	v.SetDefault("rate_limit.generation.max", 5)
	v.SetDefault("rate_limit.sweep_interval_seconds", 60)

	v.SetDefault("cache.default_ttl_seconds", 300)
	v.SetDefault("cache.sweep_interval_seconds", 60)
	v.SetDefault("cache.max_entries", 4096)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
}
