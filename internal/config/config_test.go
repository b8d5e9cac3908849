package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("STARKNET_RPC_URL", "https://rpc.example/v0_7")
	t.Setenv("VAULT_CONTRACT_ADDRESS", "0x1")
	t.Setenv("POSITION_CONTRACT_ADDRESS", "0x2")
	t.Setenv("REBALANCE_CONTRACT_ADDRESS", "0x3")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("USE_MEMORY_STORAGE", "true")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if cfg.SessionKeyTTL != 168*time.Hour {
		t.Errorf("SessionKeyTTL = %v", cfg.SessionKeyTTL)
	}
	if cfg.Gemini.Model != "gemini-1.5-flash" {
		t.Errorf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if cfg.Starknet.RequiredScope != "automated_trading" {
		t.Errorf("RequiredScope = %q", cfg.Starknet.RequiredScope)
	}
	if !cfg.Binance.StreamEnabled {
		t.Error("StreamEnabled should default to true")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("STARKNET_RPC_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing STARKNET_RPC_URL")
	}
}

func TestLoadRequiresDSNsForPersistentStorage(t *testing.T) {
	setRequired(t)
	t.Setenv("USE_MEMORY_STORAGE", "false")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DSNs")
	}

	t.Setenv("POSTGRES_DSN", "postgres://test")
	t.Setenv("CLICKHOUSE_DSN", "clickhouse://localhost:9000/test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.UseMemory {
		t.Error("UseMemory should be false")
	}
}
