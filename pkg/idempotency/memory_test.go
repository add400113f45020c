package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_MarkThenCheck(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	defer store.Close()

	processed, err := store.IsProcessed(ctx, "key-1")
	require.NoError(t, err)
	require.False(t, processed)

	require.NoError(t, store.MarkProcessed(ctx, "key-1"))
	require.NoError(t, store.MarkProcessed(ctx, "key-1"))

	processed, err = store.IsProcessed(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, processed)

	processed, err = store.IsProcessed(ctx, "key-2")
	require.NoError(t, err)
	require.False(t, processed)
}

func TestMemoryStore_CheckAndMarkSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	defer store.Close()

	const goroutines = 32

	var wg sync.WaitGroup
	winners := make(chan struct{}, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			already, err := store.CheckAndMark(ctx, "same-key")
			require.NoError(t, err)
			if !already {
				winners <- struct{}{}
			}
		}()
	}

	wg.Wait()
	close(winners)

	count := 0
	for range winners {
		count++
	}
	require.Equal(t, 1, count)
}

func TestMemoryStore_Forget(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	defer store.Close()

	already, err := store.CheckAndMark(ctx, "key")
	require.NoError(t, err)
	require.False(t, already)

	require.NoError(t, store.Forget(ctx, "key"))

	already, err = store.CheckAndMark(ctx, "key")
	require.NoError(t, err)
	require.False(t, already)
}

func TestMemoryStore_TTLEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(20 * time.Millisecond)
	defer store.Close()

	require.NoError(t, store.MarkProcessed(ctx, "key"))

	processed, err := store.IsProcessed(ctx, "key")
	require.NoError(t, err)
	require.True(t, processed)

	time.Sleep(30 * time.Millisecond)

	processed, err = store.IsProcessed(ctx, "key")
	require.NoError(t, err)
	require.False(t, processed)
}
