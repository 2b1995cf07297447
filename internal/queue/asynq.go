package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pageturn/session-service/internal/cache"
)

// Фоновый канал доставки инвалидаций: если прямая инвалидация после commit
// не прошла (redis недоступен), задача повторяется здесь с ретраями asynq.
const TaskCacheInvalidate = "cache:invalidate"

type CacheInvalidatePayload struct {
	SessionID     string `json:"session_id"`
	ParticipantID int64  `json:"participant_id"`
}

type Client struct {
	client *asynq.Client
}

func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

func (c *Client) EnqueueCacheInvalidate(ctx context.Context, p CacheInvalidatePayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("asynq: marshal payload: %w", err)
	}
	task := asynq.NewTask(TaskCacheInvalidate, payload)
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue("cache"),
		asynq.MaxRetry(5),
		asynq.Timeout(10*time.Second),
	)
	return err
}

func (c *Client) Close() error {
	return c.client.Close()
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewWorker(redisURL string, concurrency int, inv *cache.Invalidator) (*Worker, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 5
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"cache": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			slog.Error("task failed", "type", task.Type(), "err", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskCacheInvalidate, func(ctx context.Context, t *asynq.Task) error {
		var p CacheInvalidatePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal %s: %v: %w", TaskCacheInvalidate, err, asynq.SkipRetry)
		}
		return inv.InvalidateSession(ctx, p.SessionID, p.ParticipantID)
	})

	return &Worker{server: srv, mux: mux}, nil
}

// Run блокируется до отмены контекста, затем гасит воркер.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}
