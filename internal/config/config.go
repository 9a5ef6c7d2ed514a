package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Redis     RedisConfig
	Directory DirectoryConfig
	Ledger    LedgerConfig
}

type ServerConfig struct {
	HTTPPort string
	GRPCPort string
}

type StoreConfig struct {
	Driver       string
	MySQLDSN     string
	MaxOpenConns int
}

// RedisConfig is optional; an empty Addr disables idempotency keys and the
// name cache.
type RedisConfig struct {
	Addr string
}

// DirectoryConfig is optional; without a BaseURL names fall back to placeholders.
type DirectoryConfig struct {
	BaseURL string
	Timeout time.Duration
}

type LedgerConfig struct {
	ConflictRetries int
	LowStockCron    string
}

// Load reads environment variables, optionally from envFile first.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		_ = godotenv.Load()
	}

	maxOpen, err := getenvInt("MYSQL_MAX_OPEN_CONNS", 50)
	if err != nil {
		return nil, err
	}
	retries, err := getenvInt("CONFLICT_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	timeout, err := time.ParseDuration(getenvWithDefault("DIRECTORY_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("DIRECTORY_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			HTTPPort: getenvWithDefault("APP_PORT", "8080"),
			GRPCPort: getenvWithDefault("GRPC_PORT", "50051"),
		},
		Store: StoreConfig{
			Driver:       getenvWithDefault("STORE_DRIVER", DriverMemory),
			MySQLDSN:     os.Getenv("MYSQL_DSN"),
			MaxOpenConns: maxOpen,
		},
		Redis: RedisConfig{
			Addr: os.Getenv("REDIS_ADDR"),
		},
		Directory: DirectoryConfig{
			BaseURL: os.Getenv("DIRECTORY_BASE_URL"),
			Timeout: timeout,
		},
		Ledger: LedgerConfig{
			ConflictRetries: retries,
			LowStockCron:    getenvWithDefault("LOW_STOCK_CRON", "*/15 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.HTTPPort == "" {
		return errors.New("APP_PORT must be provided")
	}
	if c.Server.GRPCPort == "" {
		return errors.New("GRPC_PORT must be provided")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverMySQL:
		if c.Store.MySQLDSN == "" {
			return errors.New("MYSQL_DSN must be provided for the mysql driver")
		}
	default:
		return fmt.Errorf("STORE_DRIVER %q is not supported", c.Store.Driver)
	}

	if c.Ledger.ConflictRetries < 1 {
		return errors.New("CONFLICT_RETRIES must be at least 1")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
