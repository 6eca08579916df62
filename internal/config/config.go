package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `json:"server"`
	MongoDB   MongoDBConfig   `json:"mongodb"`
	RPC       RPCConfig       `json:"rpc"`
	Contract  ContractConfig  `json:"contract"`
	Cache     CacheConfig     `json:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Stats     StatsConfig     `json:"stats"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// MongoDBConfig holds MongoDB connection configuration
type MongoDBConfig struct {
	URI              string        `json:"uri"`
	Database         string        `json:"database"`
	APIKeyCollection string        `json:"api_key_collection"`
	ConnectTimeout   time.Duration `json:"connect_timeout"`
	MaxPoolSize      uint64        `json:"max_pool_size"`
}

// RPCConfig holds Sui fullnode JSON-RPC configuration
type RPCConfig struct {
	Endpoint   string        `json:"endpoint"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
}

// ContractConfig identifies the on-chain drop hub program. Values are
// immutable after load and threaded into every component that builds or
// inspects calls; nothing reads them from process-wide state.
type ContractConfig struct {
	RegistryID string `json:"registry_id"`
	PackageID  string `json:"package_id"`
	Module     string `json:"module"`
	CoinType   string `json:"coin_type"`
	ClockID    string `json:"clock_id"`
	// NullSender is the reserved zero account used as sender for read-only
	// inspect calls, which need no funded signer.
	NullSender string `json:"null_sender"`
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	TTL             time.Duration `json:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	WindowSize        time.Duration `json:"window_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// StatsConfig holds platform stats polling configuration
type StatsConfig struct {
	RefreshInterval time.Duration `json:"refresh_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string   `json:"level"`
	Environment string   `json:"environment"`
	OutputPaths []string `json:"output_paths"`
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		MongoDB: MongoDBConfig{
			URI:              getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:         getEnv("MONGODB_DATABASE", "suidrop_api"),
			APIKeyCollection: getEnv("MONGODB_APIKEY_COLLECTION", "api_keys"),
			ConnectTimeout:   getDurationEnv("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
			MaxPoolSize:      getUint64Env("MONGODB_MAX_POOL_SIZE", 100),
		},
		RPC: RPCConfig{
			Endpoint:   getEnv("SUI_RPC_ENDPOINT", "https://fullnode.testnet.sui.io:443"),
			Timeout:    getDurationEnv("SUI_RPC_TIMEOUT", 30*time.Second),
			MaxRetries: getIntEnv("SUI_RPC_MAX_RETRIES", 3),
			RetryDelay: getDurationEnv("SUI_RPC_RETRY_DELAY", 1*time.Second),
		},
		Contract: ContractConfig{
			RegistryID: getEnv("DROP_REGISTRY_ID", "0x46ca18174b0ee4863620789dac040ec45bf5d29ad49ee0eae144ae0a5aafe12e"),
			PackageID:  getEnv("DROP_PACKAGE_ID", "0x35d96e2d13167aab9aa8fab8530217a88d1c90ce027cdebc504fb2f74c636714"),
			Module:     getEnv("DROP_MODULE", "dropnew"),
			CoinType:   getEnv("DROP_COIN_TYPE", "0x2::sui::SUI"),
			ClockID:    getEnv("DROP_CLOCK_ID", "0x6"),
			NullSender: "0x0000000000000000000000000000000000000000000000000000000000000000",
		},
		Cache: CacheConfig{
			TTL:             getDurationEnv("CACHE_TTL", 10*time.Second),
			CleanupInterval: getDurationEnv("CACHE_CLEANUP_INTERVAL", 60*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getIntEnv("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
			WindowSize:        getDurationEnv("RATE_LIMIT_WINDOW_SIZE", time.Minute),
			CleanupInterval:   getDurationEnv("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Stats: StatsConfig{
			RefreshInterval: getDurationEnv("STATS_REFRESH_INTERVAL", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("LOG_ENVIRONMENT", "development"),
			OutputPaths: getStringSliceEnv("LOG_OUTPUT_PATHS", []string{"stdout"}),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getUint64Env(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uint64Value, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uint64Value
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		// Simple comma-separated parsing
		return []string{value}
	}
	return defaultValue
}
