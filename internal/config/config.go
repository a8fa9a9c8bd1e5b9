package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit" validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache" validate:"required"`
	Task       TaskConfig       `mapstructure:"task" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
}

// DatabaseConfig selects and configures the artifact store.
type DatabaseConfig struct {
	// Driver is "postgres" for production or "memory" for local development.
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
	URL    string `mapstructure:"url" validate:"required_if=Driver postgres"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name" validate:"required"`
	// PromptTemplatePath optionally overrides the embedded prompt template.
	PromptTemplatePath string  `mapstructure:"prompt_template_path"`
	Temperature        float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// GenerationConfig controls batching, pacing and retry of generation calls.
type GenerationConfig struct {
	BatchSize           int    `mapstructure:"batch_size" validate:"required,gt=0"`
	MaxTitles           int    `mapstructure:"max_titles" validate:"required,gt=0"`
	InterRequestDelayMS int    `mapstructure:"inter_request_delay_ms" validate:"gte=0"`
	MaxAttempts         int    `mapstructure:"max_attempts" validate:"required,gt=0"`
	RetryDelayMS        int    `mapstructure:"retry_delay_ms" validate:"gte=0"`
	RetryBackoff        string `mapstructure:"retry_backoff" validate:"required,oneof=fixed exponential"`
}

// InterRequestDelay returns the stagger delay between requests of a batch.
func (g GenerationConfig) InterRequestDelay() time.Duration {
	return time.Duration(g.InterRequestDelayMS) * time.Millisecond
}

// RetryDelay returns the base delay between generation attempts.
func (g GenerationConfig) RetryDelay() time.Duration {
	return time.Duration(g.RetryDelayMS) * time.Millisecond
}

// LimitRule is a request budget for one limiter class.
type LimitRule struct {
	WindowSeconds int `mapstructure:"window_seconds" validate:"required,gt=0"`
	Max           int `mapstructure:"max" validate:"required,gt=0"`
}

// Window returns the rule's window as a duration.
func (r LimitRule) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// RateLimitConfig holds per-class request budgets.
type RateLimitConfig struct {
	API                  LimitRule `mapstructure:"api" validate:"required"`
	Chat                 LimitRule `mapstructure:"chat" validate:"required"`
	Generation           LimitRule `mapstructure:"generation" validate:"required"`
	SweepIntervalSeconds int       `mapstructure:"sweep_interval_seconds" validate:"required,gt=0"`
}

// CacheConfig controls the read-path result cache.
type CacheConfig struct {
	DefaultTTLSeconds    int `mapstructure:"default_ttl_seconds" validate:"required,gt=0"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds" validate:"required,gt=0"`
	MaxEntries           int `mapstructure:"max_entries" validate:"required,gt=0"`
}

// TaskConfig controls the background generation job runner.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"required,gt=0"`
}
