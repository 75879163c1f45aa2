package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectChanges(t *testing.T) {
	prev := DefaultConfig()
	next := DefaultConfig()
	next.Planner.CycleInterval = 5 * time.Second
	next.Redis.Addr = "other:6379"
	next.Log.OutputPaths = []string{"stderr"}

	changes := DetectChanges(prev, next)
	require.Len(t, changes, 3)

	byPath := map[string]ConfigChange{}
	for _, c := range changes {
		byPath[c.Path] = c
	}
	assert.False(t, byPath["Planner.CycleInterval"].RequiresRestart)
	assert.Equal(t, 5*time.Second, byPath["Planner.CycleInterval"].NewValue)
	assert.True(t, byPath["Redis.Addr"].RequiresRestart)
	assert.True(t, byPath["Log.OutputPaths"].RequiresRestart)

	assert.Empty(t, DetectChanges(prev, DefaultConfig()))
}

func TestIsHotReloadable(t *testing.T) {
	assert.True(t, IsHotReloadable("Planner.Epsilon"))
	assert.True(t, IsHotReloadable("Log.Level"))
	assert.False(t, IsHotReloadable("Store.Driver"))
}

func TestReloader_Apply(t *testing.T) {
	r := NewReloader(DefaultConfig(), "")

	var seen []ConfigChange
	r.OnReload(func(_, next *Config, changes []ConfigChange) {
		assert.Equal(t, 0.5, next.Planner.Epsilon)
		seen = changes
	})

	next := DefaultConfig()
	next.Planner.Epsilon = 0.5
	changes, err := r.Apply(next)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, changes, seen)
	assert.Same(t, next, r.Config())
	assert.Equal(t, 2, r.Version())

	// 无变化时不通知也不增加版本
	changes, err = r.Apply(DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, 2, r.Version())
}

func TestReloader_RollbackOnPanic(t *testing.T) {
	initial := DefaultConfig()
	r := NewReloader(initial, "")
	r.OnReload(func(_, _ *Config, _ []ConfigChange) { panic("boom") })

	next := DefaultConfig()
	next.Planner.CycleBurst = 9
	_, err := r.Apply(next)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Same(t, initial, r.Config())
	assert.Equal(t, 1, r.Version())
}

func TestReloader_ReloadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("planner:\n  cycle_burst: 4\n"), 0644))

	r := NewReloader(DefaultConfig(), path)
	changes, err := r.ReloadFromFile()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, 4, r.Config().Planner.CycleBurst)

	// 无效配置保持当前值
	require.NoError(t, os.WriteFile(path, []byte("planner:\n  cycle_burst: 0\n"), 0644))
	_, err = r.ReloadFromFile()
	require.Error(t, err)
	assert.Equal(t, 4, r.Config().Planner.CycleBurst)

	_, err = NewReloader(DefaultConfig(), "").ReloadFromFile()
	assert.Error(t, err)
}

func TestReloader_WatchesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("planner:\n  cycle_rate: 10\n"), 0644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	r := NewReloader(cfg, path, WithReloadDebounce(20*time.Millisecond))
	var reloads atomic.Int32
	r.OnReload(func(_, _ *Config, _ []ConfigChange) { reloads.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))
	defer r.Stop()

	require.NoError(t, os.WriteFile(path, []byte("planner:\n  cycle_rate: 2\n"), 0644))

	require.Eventually(t, func() bool { return reloads.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2.0, r.Config().Planner.CycleRate)
}
