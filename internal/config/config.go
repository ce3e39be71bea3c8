package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Ethereum node configuration
	Ethereum EthereumConfig

	// NFT transfer API configuration
	NFTAPI NFTAPIConfig

	// Wallet collector configuration
	Collector CollectorConfig

	// Report output configuration
	Report ReportConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Logging configuration
	Log LogConfig
}

// EthereumConfig holds Ethereum node connection settings
type EthereumConfig struct {
	RPCURL         string        `envconfig:"ETH_RPC_URL" default:"http://localhost:8545"`
	ChainID        int64         `envconfig:"ETH_CHAIN_ID" default:"1"`
	RequestTimeout time.Duration `envconfig:"ETH_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"ETH_MAX_RETRIES" default:"3"`
	RetryDelay     time.Duration `envconfig:"ETH_RETRY_DELAY" default:"1s"`
}

// NFTAPIConfig holds settings for the paginated NFT transfer API
type NFTAPIConfig struct {
	BaseURL        string        `envconfig:"NFTAPI_BASE_URL" default:"https://nft.api.infura.io"`
	APIKey         string        `envconfig:"NFTAPI_KEY" default:""`
	APISecret      string        `envconfig:"NFTAPI_SECRET" default:""`
	RequestTimeout time.Duration `envconfig:"NFTAPI_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"NFTAPI_MAX_RETRIES" default:"3"`
	RetryDelay     time.Duration `envconfig:"NFTAPI_RETRY_DELAY" default:"2s"`
	RateLimitRPS   int           `envconfig:"NFTAPI_RATE_LIMIT_RPS" default:"10"`
	MaxPages       int           `envconfig:"NFTAPI_MAX_PAGES" default:"1000"`
}

// CollectorConfig holds wallet collection settings
type CollectorConfig struct {
	MetricsPort       int    `envconfig:"COLLECTOR_METRICS_PORT" default:"8080"`
	BatchSize         int    `envconfig:"COLLECTOR_BATCH_SIZE" default:"50"`
	CheckpointEvery   int    `envconfig:"COLLECTOR_CHECKPOINT_EVERY" default:"10"`
	CheckpointBackend string `envconfig:"COLLECTOR_CHECKPOINT_BACKEND" default:"file"`
	CheckpointPath    string `envconfig:"COLLECTOR_CHECKPOINT_PATH" default:"./userWallets.json"`
	Source            string `envconfig:"COLLECTOR_SOURCE" default:"nftapi"`
	LookbackBlocks    int64  `envconfig:"COLLECTOR_LOOKBACK_BLOCKS" default:"216000"`
	LogBatchSize      int    `envconfig:"COLLECTOR_LOG_BATCH_SIZE" default:"2000"`
	WorkerCount       int    `envconfig:"COLLECTOR_WORKER_COUNT" default:"4"`
	SkipCollect       bool   `envconfig:"COLLECTOR_SKIP" default:"false"`

	// Wallets to analyze: a file with one address per line, or a comma-separated list
	AddressesFile string   `envconfig:"COLLECTOR_ADDRESSES_FILE" default:""`
	Addresses     []string `envconfig:"COLLECTOR_ADDRESSES" default:""`
}

// ReportConfig holds report output settings
type ReportConfig struct {
	OutputPath         string `envconfig:"REPORT_OUTPUT_PATH" default:"./nft_holdings.csv"`
	ResolveCollections bool   `envconfig:"REPORT_RESOLVE_COLLECTIONS" default:"false"`
	WorkerCount        int    `envconfig:"REPORT_WORKER_COUNT" default:"4"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"analyzer"`
	Password        string        `envconfig:"DB_PASSWORD" default:"analyzer"`
	Name            string        `envconfig:"DB_NAME" default:"nft_hold_analyzer"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
	CacheTTL        time.Duration `envconfig:"API_CACHE_TTL" default:"5m"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Collector.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks collector settings that envconfig cannot express
func (c *CollectorConfig) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("COLLECTOR_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.CheckpointEvery < 1 {
		return fmt.Errorf("COLLECTOR_CHECKPOINT_EVERY must be positive, got %d", c.CheckpointEvery)
	}
	switch c.CheckpointBackend {
	case "file", "postgres":
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.CheckpointBackend)
	}
	switch c.Source {
	case "nftapi", "rpc":
	default:
		return fmt.Errorf("unknown transfer source %q", c.Source)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
