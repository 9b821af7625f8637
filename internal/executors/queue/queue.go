// Package queue dispatches jobs onto a Redis stream consumed by remote
// pipeline workers, which report progress through the job status callback.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/cohort/internal/criteria"
)

// ErrNoClient indicates the queue executor was selected without a Redis connection.
var ErrNoClient = errors.New("queue executor requires redis")

// Entry field names written to the stream.
const (
	FieldJobUID    = "job_uid"
	FieldCriterion = "criterion"
	FieldCallback  = "callback"
)

// StreamKey returns the namespaced job stream key.
func StreamKey(prefix string) string {
	return fmt.Sprintf("%s:jobs", strings.TrimSuffix(prefix, ":"))
}

// Executor appends job requests to a Redis stream.
type Executor struct {
	rdb    redis.Cmdable
	stream string
	maxLen int64
	logger *slog.Logger
}

// New creates a queue executor publishing to StreamKey(prefix). A positive
// maxLen caps the stream approximately.
func New(rdb redis.Cmdable, prefix string, maxLen int64, logger *slog.Logger) (*Executor, error) {
	if rdb == nil {
		return nil, ErrNoClient
	}

	return &Executor{
		rdb:    rdb,
		stream: StreamKey(prefix),
		maxLen: maxLen,
		logger: logger.With("system", "queue"),
	}, nil
}

// Stream returns the stream key entries are written to.
func (e *Executor) Stream() string {
	return e.stream
}

// Start appends the job to the stream and returns the entry ID as the handle.
func (e *Executor) Start(ctx context.Context, jobUID uuid.UUID, criterion criteria.Node, callbackURL string) (string, error) {
	tree, err := json.Marshal(criterion)
	if err != nil {
		return "", fmt.Errorf("encode criterion: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: e.stream,
		Values: map[string]any{
			FieldJobUID:    jobUID.String(),
			FieldCriterion: string(tree),
			FieldCallback:  callbackURL,
		},
	}
	if e.maxLen > 0 {
		args.MaxLen = e.maxLen
		args.Approx = true
	}

	id, err := e.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue job %s: %w", jobUID, err)
	}

	e.logger.Info("job enqueued", "job", jobUID, "stream", e.stream, "entry", id)
	return id, nil
}
