// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, time.Second, cfg.Planner.CycleInterval)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "planflow.yaml")
	yamlContent := `
planner:
  agent_id: "depot-7"
  cycle_interval: 250ms
  cycle_rate: 4
  aggregator: vector
  epsilon: 0.01
  propagate_to_subtasks: true
  workflows:
    - plans/convoy.yaml
    - plans/airlift.yaml

store:
  driver: redis
  key_prefix: "test:"
  ttl: 1h

redis:
  addr: "cache:6380"
  db: 3

log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "depot-7", cfg.Planner.AgentID)
	assert.Equal(t, 250*time.Millisecond, cfg.Planner.CycleInterval)
	assert.Equal(t, 4.0, cfg.Planner.CycleRate)
	assert.Equal(t, "vector", cfg.Planner.Aggregator)
	assert.Equal(t, 0.01, cfg.Planner.Epsilon)
	assert.True(t, cfg.Planner.PropagateToSubtasks)
	assert.Equal(t, []string{"plans/convoy.yaml", "plans/airlift.yaml"}, cfg.Planner.Workflows)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "test:", cfg.Store.KeyPrefix)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	// 未出现在 YAML 中的字段保持默认值
	assert.Equal(t, 1, cfg.Planner.CycleBurst)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, "planflow", cfg.Metrics.Namespace)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("PLANFLOW_PLANNER_CYCLE_INTERVAL", "2s")
	t.Setenv("PLANFLOW_PLANNER_CYCLE_BURST", "3")
	t.Setenv("PLANFLOW_PLANNER_EPSILON", "0.5")
	t.Setenv("PLANFLOW_PLANNER_PROPAGATE_COMPOSITIONS", "true")
	t.Setenv("PLANFLOW_PLANNER_WORKFLOWS", "a.yaml, b.json,")
	t.Setenv("PLANFLOW_STORE_DRIVER", "sql")
	t.Setenv("PLANFLOW_DATABASE_DRIVER", "postgres")
	t.Setenv("PLANFLOW_DATABASE_PORT", "6543")
	t.Setenv("PLANFLOW_LOG_OUTPUT_PATHS", "stdout,/var/log/planflow.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Planner.CycleInterval)
	assert.Equal(t, 3, cfg.Planner.CycleBurst)
	assert.Equal(t, 0.5, cfg.Planner.Epsilon)
	assert.True(t, cfg.Planner.PropagateCompositions)
	assert.Equal(t, []string{"a.yaml", "b.json"}, cfg.Planner.Workflows)
	assert.Equal(t, "sql", cfg.Store.Driver)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, []string{"stdout", "/var/log/planflow.log"}, cfg.Log.OutputPaths)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "planflow.yaml")
	yamlContent := `
planner:
  aggregator: vector
  agent_id: yaml-agent
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))
	t.Setenv("PLANFLOW_PLANNER_AGENT_ID", "env-agent")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "env-agent", cfg.Planner.AgentID)
	assert.Equal(t, "vector", cfg.Planner.Aggregator)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_PLANNER_AGENT_ID", "custom")
	t.Setenv("PLANFLOW_PLANNER_AGENT_ID", "ignored")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Planner.AgentID)
}

func TestLoader_BadEnvValue(t *testing.T) {
	t.Setenv("PLANFLOW_PLANNER_CYCLE_INTERVAL", "soon")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLANFLOW_PLANNER_CYCLE_INTERVAL")
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("PLANFLOW_PLANNER_CYCLE_RATE", "-1")

	_, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle_rate")
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/non/existent/path/planflow.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPlannerConfig(), cfg.Planner)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("planner:\n  cycle_rate: [oops\n"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid default config", modify: func(c *Config) {}},
		{name: "zero interval", modify: func(c *Config) { c.Planner.CycleInterval = 0 }, wantErr: "cycle_interval"},
		{name: "zero burst", modify: func(c *Config) { c.Planner.CycleBurst = 0 }, wantErr: "cycle_burst"},
		{name: "negative epsilon", modify: func(c *Config) { c.Planner.Epsilon = -1 }, wantErr: "epsilon"},
		{name: "unknown aggregator", modify: func(c *Config) { c.Planner.Aggregator = "median" }, wantErr: "aggregator"},
		{name: "unknown store", modify: func(c *Config) { c.Store.Driver = "etcd" }, wantErr: "store.driver"},
		{name: "redis without addr", modify: func(c *Config) {
			c.Store.Driver = "redis"
			c.Redis.Addr = ""
		}, wantErr: "redis.addr"},
		{name: "sql with bad driver", modify: func(c *Config) {
			c.Store.Driver = "sql"
			c.Database.Driver = "oracle"
		}, wantErr: "database.driver"},
		{name: "mongo without uri", modify: func(c *Config) {
			c.Store.Driver = "mongo"
			c.Mongo.URI = ""
		}, wantErr: "mongo.uri"},
		{name: "bad log level", modify: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
		{name: "sample rate above one", modify: func(c *Config) { c.Telemetry.SampleRate = 1.5 }, wantErr: "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "postgres",
			config: DatabaseConfig{
				Driver: "postgres", Host: "db", Port: 5432,
				User: "planner", Password: "secret", Name: "plans", SSLMode: "disable",
			},
			expected: "host=db port=5432 user=planner password=secret dbname=plans sslmode=disable",
		},
		{
			name: "mysql",
			config: DatabaseConfig{
				Driver: "mysql", Host: "db", Port: 3306,
				User: "planner", Password: "secret", Name: "plans",
			},
			expected: "planner:secret@tcp(db:3306)/plans?parseTime=true",
		},
		{name: "sqlite", config: DatabaseConfig{Driver: "sqlite", Name: "/tmp/p.db"}, expected: "/tmp/p.db"},
		{name: "unknown", config: DatabaseConfig{Driver: "oracle"}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestMustLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "planflow.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("store:\n  driver: mongo\n"), 0644))

	cfg := MustLoad(configPath)
	assert.Equal(t, "mongo", cfg.Store.Driver)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("store: [\n"), 0644))
	assert.Panics(t, func() { MustLoad(bad) })
}
