package queue_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipscout/clipscout/internal/queue"
)

func TestMemoryStoreFIFOOrder(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()

	require.NoError(t, store.Append(ctx, queue.DestinationRaw, json.RawMessage(`{"video_id":"a"}`)))
	require.NoError(t, store.Append(ctx, queue.DestinationRaw, json.RawMessage(`{"video_id":"b"}`)))

	first, err := store.DequeueNext(ctx, queue.DestinationRaw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"video_id":"a"}`, string(first.Payload))

	// Peek does not remove.
	n, err := store.Len(ctx, queue.DestinationRaw)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.Remove(ctx, queue.DestinationRaw, first))

	second, err := store.DequeueNext(ctx, queue.DestinationRaw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"video_id":"b"}`, string(second.Payload))
}

func TestMemoryStoreEmpty(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()

	_, err := store.DequeueNext(ctx, queue.DestinationRaw)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestMemoryStoreDestinationsIsolated(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()

	require.NoError(t, store.Append(ctx, queue.DestinationAccepted, json.RawMessage(`{"video_id":"x"}`)))

	_, err := store.DequeueNext(ctx, queue.DestinationRaw)
	assert.ErrorIs(t, err, queue.ErrEmpty)

	n, err := store.Len(ctx, queue.DestinationAccepted)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStoreRemoveMissing(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()

	err := store.Remove(ctx, queue.DestinationRaw, &queue.Item{Handle: "404"})
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestAppendJSON(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()

	type record struct {
		VideoID string `json:"video_id"`
	}
	require.NoError(t, queue.AppendJSON(ctx, store, queue.DestinationMoments, record{VideoID: "m1"}))

	item, err := store.DequeueNext(ctx, queue.DestinationMoments)
	require.NoError(t, err)
	assert.JSONEq(t, `{"video_id":"m1"}`, string(item.Payload))
}
