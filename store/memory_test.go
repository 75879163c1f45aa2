package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStore_Contract(t *testing.T) {
	s := NewMemoryStore(0, zap.NewNop())
	defer s.Close()
	runStoreContract(t, s)
}

func TestMemoryStore_TTL(t *testing.T) {
	s := NewMemoryStore(time.Minute, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Record{Key: "a", Result: simpleResult(t, 1)}))
	assert.Equal(t, 1, s.Len())

	now = now.Add(2 * time.Minute)
	_, err := s.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())

	existed, err := s.Delete(ctx, "a")
	require.NoError(t, err)
	assert.False(t, existed, "expired records do not count as deleted")
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore(0, nil)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	ctx := context.Background()

	assert.ErrorIs(t, s.Save(ctx, Record{Key: "a", Result: simpleResult(t, 1)}), ErrClosed)
	_, err := s.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Keys(ctx, "")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Ping(ctx), ErrClosed)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore(0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Save(ctx, Record{Key: "a", Result: simpleResult(t, 1)}), context.Canceled)
	_, err := s.Load(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore(0, nil)
	ctx := context.Background()
	r := simpleResult(t, 3)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			assert.NoError(t, s.Save(ctx, Record{Key: key, Owner: "wf", Result: r}))
			_, err := s.Load(ctx, key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	keys, err := s.Keys(ctx, "wf")
	require.NoError(t, err)
	assert.Len(t, keys, 16)
}
