package queue_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/internal/executors/queue"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleTree() criteria.Node {
	return criteria.Node{
		Kind: criteria.KindLogical,
		Op:   criteria.OpAnd,
		Children: []criteria.Node{
			{
				Kind:   criteria.KindEntity,
				UID:    uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"),
				Entity: json.RawMessage(`{"code":"A41"}`),
			},
		},
	}
}

func TestStreamKey(t *testing.T) {
	assert.Equal(t, "cohort:jobs", queue.StreamKey("cohort"))
	assert.Equal(t, "cohort:jobs", queue.StreamKey("cohort:"))
}

func TestStart(t *testing.T) {
	t.Run("appends entry with job fields", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()

		exec, err := queue.New(rdb, "cohort", 0, discard())
		require.NoError(t, err)

		jobUID := uuid.New()
		ctx := context.Background()

		handle, err := exec.Start(ctx, jobUID, sampleTree(), "https://review.example.org/api/jobs/x/status")
		require.NoError(t, err)
		assert.NotEmpty(t, handle)

		entries, err := rdb.XRange(ctx, "cohort:jobs", "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, entries, 1)

		entry := entries[0]
		assert.Equal(t, handle, entry.ID)
		assert.Equal(t, jobUID.String(), entry.Values[queue.FieldJobUID])
		assert.Equal(t, "https://review.example.org/api/jobs/x/status", entry.Values[queue.FieldCallback])

		tree, err := criteria.Parse([]byte(entry.Values[queue.FieldCriterion].(string)))
		require.NoError(t, err)
		assert.Equal(t, criteria.Leaves(sampleTree()), criteria.Leaves(tree))
	})

	t.Run("entries are ordered", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()

		exec, err := queue.New(rdb, "cohort", 100, discard())
		require.NoError(t, err)

		ctx := context.Background()
		first, err := exec.Start(ctx, uuid.New(), sampleTree(), "http://cb")
		require.NoError(t, err)
		second, err := exec.Start(ctx, uuid.New(), sampleTree(), "http://cb")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)

		n, err := rdb.XLen(ctx, exec.Stream()).Result()
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})

	t.Run("redis unavailable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer rdb.Close()
		mr.Close()

		exec, err := queue.New(rdb, "cohort", 0, discard())
		require.NoError(t, err)

		_, err = exec.Start(context.Background(), uuid.New(), sampleTree(), "http://cb")
		assert.Error(t, err)
	})
}

func TestNewRequiresClient(t *testing.T) {
	_, err := queue.New(nil, "cohort", 0, discard())
	assert.ErrorIs(t, err, queue.ErrNoClient)
}
