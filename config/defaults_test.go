package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultPlannerConfig(), cfg.Planner)
	assert.Equal(t, DefaultStoreConfig(), cfg.Store)
	assert.Equal(t, DefaultRedisConfig(), cfg.Redis)
	assert.Equal(t, DefaultDatabaseConfig(), cfg.Database)
	assert.Equal(t, DefaultMongoConfig(), cfg.Mongo)
	assert.Equal(t, DefaultMetricsConfig(), cfg.Metrics)
	assert.Equal(t, DefaultLogConfig(), cfg.Log)
	assert.Equal(t, DefaultTelemetryConfig(), cfg.Telemetry)
}

func TestDefaultPlannerConfig(t *testing.T) {
	c := DefaultPlannerConfig()
	assert.Equal(t, time.Second, c.CycleInterval)
	assert.Equal(t, 10.0, c.CycleRate)
	assert.Equal(t, 1, c.CycleBurst)
	assert.Equal(t, "default", c.Aggregator)
	assert.Equal(t, 1e-4, c.Epsilon)
	assert.False(t, c.PropagateToSubtasks)
	assert.Empty(t, c.Workflows)
}

func TestDefaultStoreConfig(t *testing.T) {
	c := DefaultStoreConfig()
	assert.Equal(t, "memory", c.Driver)
	assert.Equal(t, "planflow:results:", c.KeyPrefix)
	assert.Zero(t, c.TTL)
}

func TestDefaultDatabaseConfig(t *testing.T) {
	c := DefaultDatabaseConfig()
	assert.Equal(t, "sqlite", c.Driver)
	assert.Equal(t, "planflow.db", c.DSN())
	assert.True(t, c.AutoMigrate)
}

func TestDefaultMongoConfig(t *testing.T) {
	c := DefaultMongoConfig()
	assert.Equal(t, "mongodb://localhost:27017", c.URI)
	assert.Equal(t, "allocation_results", c.Collection)
}

func TestDefaultLogAndTelemetry(t *testing.T) {
	assert.Equal(t, "info", DefaultLogConfig().Level)
	assert.Equal(t, []string{"stdout"}, DefaultLogConfig().OutputPaths)
	assert.False(t, DefaultTelemetryConfig().Enabled)
	assert.Equal(t, "planflow", DefaultTelemetryConfig().ServiceName)
}
