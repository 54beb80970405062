package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Billing  BillingConfig  `mapstructure:"billing" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
	Health   HealthConfig   `mapstructure:"health" validate:"required"`
	Margin   MarginConfig   `mapstructure:"margin" validate:"required"`
	Recovery RecoveryConfig `mapstructure:"recovery" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains database settings. An empty URL selects the
// in-memory stores (local development and tests).
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// BillingConfig carries the pricing constants the cost resolver and the
// margin balancer work from. These are configuration inputs, not business
// policy baked into code.
type BillingConfig struct {
	// FXRate converts the tool's USD cost estimate into local currency.
	FXRate float64 `mapstructure:"fx_rate" validate:"required,gt=0"`

	// MarginMultiplier is applied on top of the converted cost when
	// resolving per-task prices.
	MarginMultiplier float64 `mapstructure:"margin_multiplier" validate:"required,gt=0"`

	// CreditValue is the local-currency value of one credit, used by the
	// margin balancer to express revenue in currency terms.
	CreditValue float64 `mapstructure:"credit_value" validate:"required,gt=0"`

	// MinTaskCost is the floor, in credits, for any non-free resolved cost.
	MinTaskCost int64 `mapstructure:"min_task_cost" validate:"gte=0"`

	// RenewalDays is the length of a subscription window.
	RenewalDays int `mapstructure:"renewal_days" validate:"required,gt=0"`
}

// EngineConfig tunes the scheduler loop and retry controller.
type EngineConfig struct {
	TickMs        int `mapstructure:"tick_ms" validate:"required,gt=0"`
	BackoffBaseMs int `mapstructure:"backoff_base_ms" validate:"required,gt=0"`
	MaxRetries    int `mapstructure:"max_retries" validate:"gte=0"`
}

// HealthConfig tunes the circuit breaker / health monitor.
type HealthConfig struct {
	ProbeIntervalMs    int `mapstructure:"probe_interval_ms" validate:"required,gt=0"`
	LatencyThresholdMs int `mapstructure:"latency_threshold_ms" validate:"required,gt=0"`
	BreakerThreshold   int `mapstructure:"breaker_threshold" validate:"required,gt=0"`
	DegradedFloor      int `mapstructure:"degraded_floor" validate:"gte=0,lte=100"`
}

// MarginConfig tunes the auto-balancer sweep.
type MarginConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes" validate:"required,gt=0"`
}

// RecoveryConfig tunes the abandoned-checkout watcher: how long a tracked
// checkout may sit open before a recovery task is requested, and how often
// the watcher sweeps.
type RecoveryConfig struct {
	CheckoutTimeoutMs int `mapstructure:"checkout_timeout_ms" validate:"required,gt=0"`
	SweepIntervalMs   int `mapstructure:"sweep_interval_ms" validate:"required,gt=0"`
}

// LLMConfig contains the external AI provider settings. An empty API key
// selects the static fallback generator.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
}

// GatewayConfig points at the outbound messaging gateway.
type GatewayConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	Token   string `mapstructure:"token"`
}

// AlertsConfig configures the operator alert webhook. Empty disables alerts.
type AlertsConfig struct {
	WebhookURL string `mapstructure:"webhook_url" validate:"omitempty,url"`
}

// RedisConfig enables the per-user enqueue rate limiter when Addr is set.
type RedisConfig struct {
	Addr            string `mapstructure:"addr"`
	EnqueueLimit    int    `mapstructure:"enqueue_limit" validate:"gte=0"`
	EnqueueWindowMs int    `mapstructure:"enqueue_window_ms" validate:"gte=0"`
}

// KafkaConfig enables the task lifecycle audit publisher when Brokers is set.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}
