package domain

// Config holds the complete FinGuard configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Component configurations
	Repository   RepositoryConfig   `json:"repository"`
	Cache        CacheConfig        `json:"cache"`
	EventBus     EventBusConfig     `json:"eventBus"`
	Search       SearchConfig       `json:"search"`
	Investigator InvestigatorConfig `json:"investigator"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds

	// RateLimitPerMinute caps requests per tenant per minute. 0 disables.
	RateLimitPerMinute int `json:"rateLimitPerMinute"`
}

// SearchConfig holds similarity-search settings for the detection stage.
type SearchConfig struct {
	// HistoryLimit is the number of neighbors requested from history search.
	HistoryLimit int `json:"historyLimit"`

	// HistoryWindowDays is the recency window applied before ranking.
	HistoryWindowDays int `json:"historyWindowDays"`

	// PatternLimit is the number of catalog matches requested.
	PatternLimit int `json:"patternLimit"`

	// MaxCandidates caps how many stored rows the brute-force scan loads.
	MaxCandidates int `json:"maxCandidates"`
}

// InvestigatorConfig holds forensic-assessment settings.
type InvestigatorConfig struct {
	// Model is the generative model used for forensic analysis.
	Model string `json:"model"`

	// MaxAttempts bounds model calls before falling back to rule-based
	// assessment. Minimum effective value is 1.
	MaxAttempts int `json:"maxAttempts"`

	// CacheTTLSeconds is how long assessments are cached by behavior
	// digest. 0 disables assessment caching.
	CacheTTLSeconds int `json:"cacheTtlSeconds"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			ReadTimeout:        30,
			WriteTimeout:       30,
			RateLimitPerMinute: 0,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./finguard.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300, // 5 minutes
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Search: SearchConfig{
			HistoryLimit:      20,
			HistoryWindowDays: 30,
			PatternLimit:      3,
			MaxCandidates:     5000,
		},
		Investigator: InvestigatorConfig{
			Model:           "gemini-2.0-flash",
			MaxAttempts:     2,
			CacheTTLSeconds: 3600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "finguard",
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
		PostgresDB:   "finguard",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
