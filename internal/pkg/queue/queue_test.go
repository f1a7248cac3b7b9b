package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitinsight/gitinsight/internal/model"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestNewQueue(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_queue")

	assert.NotNil(t, q)
	assert.Equal(t, "test_queue", q.Name())
}

func TestQueue_RepoTaskRoundtrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "repo_tasks")
	ctx := context.Background()

	msg := &RepoTaskMessage{
		AnalysisID:    42,
		RepositoryURL: "https://github.com/acme/demo",
		AccessToken:   "ghp_secret",
		Parameters: model.AnalysisParams{
			Lang:         "en",
			Size:         "medium",
			Technicality: "technical",
		},
		ResultQueue: "results",
	}

	require.NoError(t, q.PushRepoTask(ctx, msg))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	got, err := q.PopRepoTask(ctx, 1*time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, msg.AnalysisID, got.AnalysisID)
	assert.Equal(t, msg.RepositoryURL, got.RepositoryURL)
	assert.Equal(t, msg.AccessToken, got.AccessToken)
	assert.Equal(t, msg.Parameters, got.Parameters)
	assert.Equal(t, msg.ResultQueue, got.ResultQueue)
}

func TestQueue_AITaskRoundtrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "ai_tasks")
	ctx := context.Background()

	msg := &AITaskMessage{
		AnalysisID:    7,
		ExtractedText: "--- FILE: README.md ---\nhello\n\n",
		Parameters:    model.AnalysisParams{Lang: "fr", Size: "small", Technicality: "expert"},
		ResultQueue:   "results",
	}

	require.NoError(t, q.PushAITask(ctx, msg))

	got, err := q.PopAITask(ctx, 1*time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, msg.AnalysisID, got.AnalysisID)
	assert.Equal(t, msg.ExtractedText, got.ExtractedText)
	assert.Equal(t, msg.Parameters, got.Parameters)
}

func TestQueue_ResultRoundtrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "results")
	ctx := context.Background()

	t.Run("completion result", func(t *testing.T) {
		msg := &ResultMessage{
			AnalysisID:     9,
			Status:         model.StatusCompleted,
			SummaryContent: "<p>summary</p>",
		}
		require.NoError(t, q.PushResult(ctx, msg))

		got, err := q.PopResult(ctx, 1*time.Second)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.StatusCompleted, got.Status)
		assert.Equal(t, "<p>summary</p>", got.SummaryContent)
		assert.Empty(t, got.ErrorMessage)
	})

	t.Run("failure result", func(t *testing.T) {
		msg := &ResultMessage{
			AnalysisID:   10,
			Status:       model.StatusFailed,
			ErrorMessage: "failed to clone repository",
		}
		require.NoError(t, q.PushResult(ctx, msg))

		got, err := q.PopResult(ctx, 1*time.Second)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.StatusFailed, got.Status)
		assert.Equal(t, "failed to clone repository", got.ErrorMessage)
	})
}

func TestQueue_FIFOOrder(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "ordered")
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, q.PushResult(ctx, &ResultMessage{AnalysisID: i, Status: model.StatusQueued}))
	}

	for i := int64(1); i <= 3; i++ {
		got, err := q.PopResult(ctx, 1*time.Second)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, i, got.AnalysisID)
	}
}

func TestQueue_PopTimeout(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "empty_queue")

	got, err := q.PopResult(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
}
