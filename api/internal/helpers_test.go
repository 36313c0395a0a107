package internal_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apiinternal "learn.ringlimiter/api/internal"
	"learn.ringlimiter/config"
)

const sampleConfig = `
limiters:
  - key: api_rate_limit
    scope: global
    budget: 5
    window: 60s
  - key: login
    scope: per_client
    budget: 3
    window: 1m30s
    stats:
      backend: redis
      ttl: 24h
      redis_params:
        address: "localhost:6379"
        db: 2
`

func TestParseConfig(t *testing.T) {
	cfg, err := apiinternal.ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if len(cfg.Limiters) != 2 {
		t.Fatalf("Expected 2 limiters, got %d", len(cfg.Limiters))
	}

	api := cfg.Limiters[0]
	if api.Key != "api_rate_limit" || api.Scope != config.Global || api.Budget != 5 || api.Window != time.Minute {
		t.Fatalf("Unexpected first limiter: %+v", api)
	}
	if api.StatsBackend() != config.InMemory {
		t.Fatalf("Expected in-memory stats default, got %s", api.StatsBackend())
	}

	login := cfg.Limiters[1]
	if login.Window != 90*time.Second {
		t.Fatalf("login window = %s, want 1m30s", login.Window)
	}
	if login.Stats == nil || login.Stats.Backend != config.Redis || login.Stats.TTL != 24*time.Hour {
		t.Fatalf("Unexpected login stats config: %+v", login.Stats)
	}
	if login.Stats.RedisParams.Address != "localhost:6379" || login.Stats.RedisParams.DB != 2 {
		t.Fatalf("Unexpected redis params: %+v", login.Stats.RedisParams)
	}
}

func TestParseConfig_UnknownField(t *testing.T) {
	_, err := apiinternal.ParseConfig([]byte("limiters:\n  - key: a\n    budjet: 5\n"))
	if err == nil {
		t.Fatal("Expected error for unknown field")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	cfg, err := apiinternal.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.Limiters) != 2 {
		t.Fatalf("Expected 2 limiters, got %d", len(cfg.Limiters))
	}

	_, err = apiinternal.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Fatalf("Expected read error, got %v", err)
	}
}

func TestInitClients_MissingParams(t *testing.T) {
	if _, err := apiinternal.InitRedisClient(nil); err == nil {
		t.Fatal("Expected error for nil redis params")
	}
	if _, err := apiinternal.InitMemcacheClient(&config.MemcacheBackendConfig{}); err == nil {
		t.Fatal("Expected error for empty memcache addresses")
	}
}
