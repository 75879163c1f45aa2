// 配置热重载。
//
// Reloader 监听配置文件，重新加载并校验后通知订阅者；订阅者 panic 时回滚到旧配置。
package config

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// --- 热重载类型定义 ---

// ConfigChange describes one leaf field that differs between two configs.
type ConfigChange struct {
	Path            string `json:"path"`
	OldValue        any    `json:"old_value,omitempty"`
	NewValue        any    `json:"new_value,omitempty"`
	RequiresRestart bool   `json:"requires_restart"`
}

// ReloadCallback 重新加载配置后调用
type ReloadCallback func(oldConfig, newConfig *Config, changes []ConfigChange)

// --- 可热重载字段注册表 ---

// hotReloadable lists the fields a running process applies without restart.
var hotReloadable = map[string]bool{
	"Planner.CycleInterval":       true,
	"Planner.CycleRate":           true,
	"Planner.CycleBurst":          true,
	"Planner.Aggregator":          true,
	"Planner.Epsilon":             true,
	"Planner.PropagateToSubtasks": true,
	"Log.Level":                   true,
}

// sensitive 字段的值不会写入日志
var sensitive = map[string]bool{
	"Redis.Password":    true,
	"Database.Password": true,
	"Mongo.URI":         true,
}

// IsHotReloadable reports whether a change to the dotted field path takes
// effect without restarting.
func IsHotReloadable(path string) bool {
	return hotReloadable[path]
}

// DetectChanges compares two configs field by field.
func DetectChanges(oldConfig, newConfig *Config) []ConfigChange {
	var changes []ConfigChange
	compareStructs("", reflect.ValueOf(oldConfig).Elem(), reflect.ValueOf(newConfig).Elem(), &changes)
	return changes
}

func compareStructs(prefix string, oldVal, newVal reflect.Value, changes *[]ConfigChange) {
	t := oldVal.Type()
	for i := 0; i < oldVal.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		path := field.Name
		if prefix != "" {
			path = prefix + "." + field.Name
		}

		oldField, newField := oldVal.Field(i), newVal.Field(i)
		if oldField.Kind() == reflect.Struct {
			compareStructs(path, oldField, newField, changes)
			continue
		}
		if !reflect.DeepEqual(oldField.Interface(), newField.Interface()) {
			*changes = append(*changes, ConfigChange{
				Path:            path,
				OldValue:        oldField.Interface(),
				NewValue:        newField.Interface(),
				RequiresRestart: !hotReloadable[path],
			})
		}
	}
}

// --- 热重载管理器 ---

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithReloaderLogger sets the logger.
func WithReloaderLogger(logger *zap.Logger) ReloaderOption {
	return func(r *Reloader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReloadDebounce sets the file event debounce window.
func WithReloadDebounce(d time.Duration) ReloaderOption {
	return func(r *Reloader) { r.debounce = d }
}

// WithReloadEnvPrefix sets the env prefix used when reloading.
func WithReloadEnvPrefix(prefix string) ReloaderOption {
	return func(r *Reloader) { r.envPrefix = prefix }
}

// Reloader owns the live configuration and swaps it when the file changes.
type Reloader struct {
	mu        sync.RWMutex
	config    *Config
	path      string
	envPrefix string
	debounce  time.Duration
	version   int

	watcher   *FileWatcher
	callbacks []ReloadCallback
	logger    *zap.Logger
}

// NewReloader creates a reloader seeded with the already loaded config.
func NewReloader(cfg *Config, path string, opts ...ReloaderOption) *Reloader {
	r := &Reloader{
		config:    cfg,
		path:      path,
		envPrefix: DefaultEnvPrefix,
		debounce:  500 * time.Millisecond,
		version:   1,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "config_reloader"))
	return r
}

// Start begins watching the config file. Without a path it is a no-op.
func (r *Reloader) Start(ctx context.Context) error {
	if r.path == "" {
		return nil
	}
	w, err := NewFileWatcher([]string{r.path},
		WithWatcherLogger(r.logger),
		WithDebounceDelay(r.debounce))
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.OnChange(func(ev FileEvent) {
		if !ev.Op.IsContentChange() {
			return
		}
		if _, err := r.ReloadFromFile(); err != nil {
			r.logger.Error("failed to reload configuration", zap.Error(err))
		}
	})
	if err := w.Start(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.watcher = w
	r.mu.Unlock()
	return nil
}

// Stop stops watching.
func (r *Reloader) Stop() error {
	r.mu.Lock()
	w := r.watcher
	r.watcher = nil
	r.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Stop()
}

// Config returns the live configuration. Callers must not mutate it.
func (r *Reloader) Config() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// Version counts successfully applied configurations, starting at 1.
func (r *Reloader) Version() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// OnReload registers a callback for applied configurations.
func (r *Reloader) OnReload(cb ReloadCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// ReloadFromFile loads, validates and applies the config file. An invalid
// file leaves the live config untouched.
func (r *Reloader) ReloadFromFile() ([]ConfigChange, error) {
	if r.path == "" {
		return nil, fmt.Errorf("no config path set")
	}
	next, err := NewLoader().WithConfigPath(r.path).WithEnvPrefix(r.envPrefix).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := next.Validate(); err != nil {
		r.logger.Warn("invalid config from file, keeping current config",
			zap.String("path", r.path), zap.Error(err))
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return r.Apply(next)
}

// Apply swaps in next and notifies callbacks. If a callback panics the
// previous config is restored and the panic is returned as an error.
func (r *Reloader) Apply(next *Config) ([]ConfigChange, error) {
	r.mu.Lock()
	prev := r.config
	changes := DetectChanges(prev, next)
	if len(changes) == 0 {
		r.mu.Unlock()
		return nil, nil
	}
	r.config = next
	r.version++
	callbacks := slices.Clone(r.callbacks)
	r.mu.Unlock()

	requiresRestart := false
	for _, c := range changes {
		r.logChange(c)
		requiresRestart = requiresRestart || c.RequiresRestart
	}

	if err := notifySafe(callbacks, prev, next, changes); err != nil {
		r.mu.Lock()
		if r.config == next {
			r.config = prev
			r.version--
		}
		r.mu.Unlock()
		r.logger.Error("reload callback failed, rolled back", zap.Error(err))
		return changes, err
	}

	if requiresRestart {
		r.logger.Warn("some configuration changes require restart to take effect")
	}
	r.logger.Info("configuration reloaded", zap.Int("changes", len(changes)))
	return changes, nil
}

func notifySafe(callbacks []ReloadCallback, prev, next *Config, changes []ConfigChange) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reload callback panicked: %v", rec)
		}
	}()
	for _, cb := range callbacks {
		cb(prev, next, changes)
	}
	return nil
}

func (r *Reloader) logChange(c ConfigChange) {
	fields := []zap.Field{
		zap.String("path", c.Path),
		zap.Bool("requires_restart", c.RequiresRestart),
	}
	if !sensitive[c.Path] {
		fields = append(fields, zap.Any("old_value", c.OldValue), zap.Any("new_value", c.NewValue))
	}
	r.logger.Info("configuration changed", fields...)
}
