package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name" env:"NAME"`
	Host     string         `yaml:"host" env:"HOST"`
	Port     int            `yaml:"port" env:"PORT"`
	LogLevel string         `yaml:"log_level" env:"LOG_LEVEL"`
	GrpcPort int            `yaml:"grpc_port" env:"GRPC_PORT"`
	Source   MSourceConfig  `yaml:"source" envPrefix:"SOURCE_"`
	Live     MLiveConfig    `yaml:"live" envPrefix:"LIVE_"`
	Chart    MChartConfig   `yaml:"chart" envPrefix:"CHART_"`
	Storage  MStorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	Redis    MRedisConfig   `yaml:"redis" envPrefix:"REDIS_"`
}

// MSourceConfig describes where the trading process publishes its snapshots.
type MSourceConfig struct {
	BaseURL            string `yaml:"base_url" env:"BASE_URL"`
	RequestTimeout     int    `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries         int    `yaml:"retries" env:"RETRIES"`
	ConcurrentRequests int    `yaml:"concurrent_requests" env:"CONCURRENT_REQUESTS"`
	UserAgent          string `yaml:"user_agent" env:"USER_AGENT"`
	// Proxy is an optional outbound HTTP/SOCKS5 proxy for the pulls.
	Proxy string `yaml:"proxy" env:"PROXY"`
}

type MLiveConfig struct {
	// PollOnly disables the push channel for the whole session.
	PollOnly bool `yaml:"poll_only" env:"POLL_ONLY"`
	// PushURL overrides the ws_url advertised by config.json.
	PushURL string `yaml:"push_url" env:"PUSH_URL"`
}

type MChartConfig struct {
	Range int `yaml:"range" env:"RANGE"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type" env:"DB_TYPE"` // none, sqlite, postgres
	DBPath             string `yaml:"db_path" env:"DB_PATH"`
	DBConnectionString string `yaml:"db_connection_string" env:"DB_CONNECTION_STRING"`
	RetentionDays      int    `yaml:"retention_days" env:"RETENTION_DAYS"`
}

type MRedisConfig struct {
	URL       string `yaml:"url" env:"URL"`
	Channel   string `yaml:"channel" env:"CHANNEL"`
	LatestKey string `yaml:"latest_key" env:"LATEST_KEY"`
}
