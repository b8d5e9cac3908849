// Package config loads the server configuration from the environment.
// A .env file in the working directory is honored but never required;
// real environment variables win.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the complete runtime configuration.
type Config struct {
	ListenAddr  string `env:"LISTEN_ADDR,default=:8080"`
	MetricsAddr string `env:"METRICS_ADDR,default=:9090"`

	Starknet Starknet
	Gemini   Gemini
	Binance  Binance
	Storage  Storage

	SessionKeyTTL time.Duration `env:"SESSION_KEY_TTL,default=168h"`
}

// Starknet holds the node endpoint and the contract addresses the
// gateways bind to.
type Starknet struct {
	RPCURL string `env:"STARKNET_RPC_URL,required"`

	VaultAddress           string `env:"VAULT_CONTRACT_ADDRESS,required"`
	SessionRegistryAddress string `env:"SESSION_REGISTRY_CONTRACT_ADDRESS"`
	PositionAddress        string `env:"POSITION_CONTRACT_ADDRESS,required"`
	RebalanceAddress       string `env:"REBALANCE_CONTRACT_ADDRESS,required"`

	// RequiredScope is the permission scope session keys must carry
	// on chain. Empty disables the cross-check.
	RequiredScope string `env:"SESSION_REQUIRED_SCOPE,default=automated_trading"`
}

// Gemini configures the recommendation engine.
type Gemini struct {
	APIKey string `env:"GEMINI_API_KEY,required"`
	Model  string `env:"GEMINI_MODEL,default=gemini-1.5-flash"`
}

// Binance configures the market data provider.
type Binance struct {
	// StreamEnabled turns on the websocket trade stream for fresher
	// prices.
	StreamEnabled bool   `env:"BINANCE_STREAM_ENABLED,default=true"`
	WSEndpoint    string `env:"BINANCE_WS_ENDPOINT,default=wss://stream.binance.com:9443"`
}

// Storage selects and configures the persistence backends.
type Storage struct {
	// UseMemory switches every store to the in-memory implementation.
	// Postgres and ClickHouse settings are ignored when set.
	UseMemory bool `env:"USE_MEMORY_STORAGE,default=false"`

	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`
}

// Load reads the configuration from the environment, after loading a
// .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	if !cfg.Storage.UseMemory {
		if cfg.Storage.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required unless USE_MEMORY_STORAGE is set")
		}
		if cfg.Storage.ClickhouseDSN == "" {
			return nil, fmt.Errorf("CLICKHOUSE_DSN is required unless USE_MEMORY_STORAGE is set")
		}
	}

	return &cfg, nil
}
