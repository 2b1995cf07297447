package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pageturn/session-service/internal/queue"
)

type Invalidator interface {
	InvalidateSession(ctx context.Context, sessionID string, participantID int64) error
}

type InvalidateQueue interface {
	EnqueueCacheInvalidate(ctx context.Context, p queue.CacheInvalidatePayload) error
}

// postCommitInvalidator — инвалидация кэша строго после commit, fire-and-forget:
// недоступный redis не должен ни блокировать, ни валить уже зафиксированную
// операцию. Неудача логируется и уходит в очередь на повтор.
type postCommitInvalidator struct {
	inv     Invalidator
	retry InvalidateQueue // nil — без фонового повтора
	timeout time.Duration
}

func newPostCommitInvalidator(inv Invalidator, q InvalidateQueue) *postCommitInvalidator {
	return &postCommitInvalidator{inv: inv, retry: q, timeout: 3 * time.Second}
}

func (p *postCommitInvalidator) after(sessionID string, participantID int64) {
	if p == nil || p.inv == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		err := p.inv.InvalidateSession(ctx, sessionID, participantID)
		if err == nil {
			return
		}
		slog.Warn("cache invalidation failed",
			"session_id", sessionID, "participant_id", participantID, "err", err)

		if p.retry == nil {
			return
		}
		task := queue.CacheInvalidatePayload{SessionID: sessionID, ParticipantID: participantID}
		if qerr := p.retry.EnqueueCacheInvalidate(ctx, task); qerr != nil {
			slog.Error("cache invalidation enqueue failed",
				"session_id", sessionID, "err", qerr)
		}
	}()
}
