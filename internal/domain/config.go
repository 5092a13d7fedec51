package domain

import "time"

// Config holds the complete service configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier" mapstructure:"tier"`

	// Mode is the default evaluator when a request does not name one
	// - "forward": AND-before-OR forward chaining (canonical)
	// - "fuzzy": Mamdani min/max with defuzzification
	Mode Mode `json:"mode" mapstructure:"mode"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" mapstructure:"repository"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache"`
	EventBus   EventBusConfig   `json:"eventBus" mapstructure:"eventBus"`

	// Collaborators
	Prediction PredictionConfig `json:"prediction" mapstructure:"prediction"`
	Telemetry  TelemetryConfig  `json:"telemetry" mapstructure:"telemetry"`
	Knowledge  KnowledgeConfig  `json:"knowledge" mapstructure:"knowledge"`

	// Observability
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" mapstructure:"host"`
	Port         int    `json:"port" mapstructure:"port"`
	ReadTimeout  int    `json:"readTimeout" mapstructure:"readTimeout"`   // seconds
	WriteTimeout int    `json:"writeTimeout" mapstructure:"writeTimeout"` // seconds

	// AllowedOrigins restricts CORS; empty allows any origin.
	AllowedOrigins []string `json:"allowedOrigins" mapstructure:"allowedOrigins"`
}

// PredictionConfig holds settings for the health-prediction service client.
type PredictionConfig struct {
	Enabled   bool          `json:"enabled" mapstructure:"enabled"`
	BaseURL   string        `json:"baseUrl" mapstructure:"baseUrl"`
	Path      string        `json:"path" mapstructure:"path"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	RateLimit float64       `json:"rateLimit" mapstructure:"rateLimit"` // requests per second
	Burst     int           `json:"burst" mapstructure:"burst"`
	CacheTTL  time.Duration `json:"cacheTtl" mapstructure:"cacheTtl"`
}

// TelemetryConfig holds live telemetry bookkeeping settings.
type TelemetryConfig struct {
	// OnlineWindow is how recent the latest reading must be for the motor to count as running.
	OnlineWindow time.Duration `json:"onlineWindow" mapstructure:"onlineWindow"`

	// RecentReadings is the size of the per-motor history buffer.
	RecentReadings int `json:"recentReadings" mapstructure:"recentReadings"`

	// AlertWindow and AlertPersistence: an alert opens after firing
	// AlertPersistence times within AlertWindow.
	AlertWindow      time.Duration `json:"alertWindow" mapstructure:"alertWindow"`
	AlertPersistence int64         `json:"alertPersistence" mapstructure:"alertPersistence"`

	// AsyncWorker routes ingested readings through the event bus.
	AsyncWorker bool `json:"asyncWorker" mapstructure:"asyncWorker"`
}

// KnowledgeConfig points at an optional knowledge base file.
// Empty Path means the embedded catalog.
type KnowledgeConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName  string `json:"serviceName" mapstructure:"serviceName"`
	ExporterType string `json:"exporterType" mapstructure:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint" mapstructure:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + channels + in-process cache
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Mode: ModeForward,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./motordiag.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalTTL:     5 * time.Minute,
			LocalCleanup: 10 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Prediction: PredictionConfig{
			Enabled:   false,
			BaseURL:   "http://localhost:8001",
			Path:      "/predict/health",
			Timeout:   10 * time.Second,
			RateLimit: 1,
			Burst:     3,
			CacheTTL:  time.Minute,
		},
		Telemetry: TelemetryConfig{
			OnlineWindow:     20 * time.Second,
			RecentReadings:   30,
			AlertWindow:      time.Minute,
			AlertPersistence: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "motordiag",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "motordiag",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalTTL:       time.Minute,
		LocalCleanup:   5 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Telemetry.AsyncWorker = true
	cfg.Tracing.Enabled = true
	return cfg
}
