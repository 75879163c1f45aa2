package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type eventLog struct {
	mu     sync.Mutex
	events []FileEvent
}

func (l *eventLog) add(e FileEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) snapshot() []FileEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]FileEvent(nil), l.events...)
}

func startWatcher(t *testing.T, w *FileWatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })
}

// --- Constructor ---

func TestNewFileWatcher_Defaults(t *testing.T) {
	f := filepath.Join(t.TempDir(), "planflow.yaml")
	require.NoError(t, os.WriteFile(f, []byte("key: val"), 0644))

	w, err := NewFileWatcher([]string{f, f})
	require.NoError(t, err)

	assert.Equal(t, []string{f}, w.Paths())
	assert.False(t, w.IsRunning())
	assert.Equal(t, 100*time.Millisecond, w.debounceDelay)
}

func TestNewFileWatcher_WithOptions(t *testing.T) {
	w, err := NewFileWatcher(nil,
		WithDebounceDelay(500*time.Millisecond),
		WithWatcherLogger(zap.NewNop()),
	)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, w.debounceDelay)
}

func TestNewFileWatcher_NonExistentPath(t *testing.T) {
	w, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "later.yaml")})
	require.NoError(t, err)
	assert.Len(t, w.Paths(), 1)
}

// --- AddPath / RemovePath ---

func TestFileWatcher_AddRemovePath(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "a.yaml")
	f2 := filepath.Join(dir, "b.yaml")

	w, err := NewFileWatcher([]string{f1})
	require.NoError(t, err)

	require.NoError(t, w.AddPath(f2))
	require.NoError(t, w.AddPath(f2))
	assert.Equal(t, []string{f1, f2}, w.Paths())

	require.NoError(t, w.RemovePath(f1))
	assert.Equal(t, []string{f2}, w.Paths())

	err = w.RemovePath(f1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path not found")
}

// --- Lifecycle ---

func TestFileWatcher_Lifecycle(t *testing.T) {
	f := filepath.Join(t.TempDir(), "planflow.yaml")
	require.NoError(t, os.WriteFile(f, []byte("key: val"), 0644))

	w, err := NewFileWatcher([]string{f})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())

	err = w.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop())
}

func TestFileWatcher_StopAfterContextCancel(t *testing.T) {
	f := filepath.Join(t.TempDir(), "planflow.yaml")
	w, err := NewFileWatcher([]string{f})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	// Stop must not block once the loop has already exited.
	done := make(chan struct{})
	go func() {
		_ = w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after context cancellation")
	}
	assert.False(t, w.IsRunning())
}

// --- Events ---

func TestFileWatcher_DetectsWrite(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "planflow.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v1"), 0644))

	w, err := NewFileWatcher([]string{f}, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)
	var log eventLog
	w.OnChange(log.add)
	startWatcher(t, w)

	require.NoError(t, os.WriteFile(f, []byte("v2"), 0644))

	require.Eventually(t, func() bool { return len(log.snapshot()) > 0 }, 3*time.Second, 10*time.Millisecond)
	evt := log.snapshot()[0]
	assert.Equal(t, f, evt.Path)
	assert.True(t, evt.Op.IsContentChange())
}

func TestFileWatcher_DetectsCreation(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "later.yaml")

	w, err := NewFileWatcher([]string{f}, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)
	var log eventLog
	w.OnChange(log.add)
	startWatcher(t, w)

	require.NoError(t, os.WriteFile(f, []byte("v1"), 0644))

	require.Eventually(t, func() bool { return len(log.snapshot()) > 0 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, f, log.snapshot()[0].Path)
}

func TestFileWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "planflow.yaml")
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v1"), 0644))

	w, err := NewFileWatcher([]string{f}, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)
	var log eventLog
	w.OnChange(log.add)
	startWatcher(t, w)

	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))
	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, log.snapshot())
}

func TestFileWatcher_CoalescesBurst(t *testing.T) {
	f := filepath.Join(t.TempDir(), "planflow.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v0"), 0644))

	w, err := NewFileWatcher([]string{f}, WithDebounceDelay(300*time.Millisecond))
	require.NoError(t, err)
	var log eventLog
	w.OnChange(log.add)
	startWatcher(t, w)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(f, []byte{byte('a' + i)}, 0644))
	}

	require.Eventually(t, func() bool { return len(log.snapshot()) > 0 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(500 * time.Millisecond)
	assert.Len(t, log.snapshot(), 1, "a burst of writes to one file dispatches once")
}

func TestFileOp_String(t *testing.T) {
	assert.Equal(t, "CREATE", FileOpCreate.String())
	assert.Equal(t, "WRITE", FileOpWrite.String())
	assert.Equal(t, "REMOVE", FileOpRemove.String())
	assert.Equal(t, "RENAME", FileOpRename.String())
	assert.Equal(t, "CHMOD", FileOpChmod.String())
	assert.Equal(t, "UNKNOWN", FileOp(42).String())
	assert.False(t, FileOpRemove.IsContentChange())
}
