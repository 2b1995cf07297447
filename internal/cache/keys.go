package cache

import (
	"context"
	"errors"
	"fmt"
)

// Схема ключей:
//   session:{id}                      — одиночная проекция сессии
//   sessions:list:{limit}:{cursor}    — страницы общего листинга
//   participant:{id}:sessions:{...}   — листинги сессий участника
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

func SessionListKey(limit int, cursor string) string {
	return fmt.Sprintf("sessions:list:%d:%s", limit, cursor)
}

func SessionListPattern() string {
	return "sessions:list:*"
}

func ParticipantSessionsPattern(participantID int64) string {
	return fmt.Sprintf("participant:%d:sessions:*", participantID)
}

// Invalidator снимает устаревшие проекции после зафиксированной мутации.
// Вызывается строго после commit; его ошибка — деградация кэша, не отказ
// операции.
type Invalidator struct {
	cache Cache
}

func NewInvalidator(c Cache) *Invalidator {
	return &Invalidator{cache: c}
}

// InvalidateSession чистит одиночную проекцию и все коллекции, куда могла
// попасть эта сессия. participantID == 0 — мутация без конкретного участника
// (lifecycle-переход).
func (i *Invalidator) InvalidateSession(ctx context.Context, sessionID string, participantID int64) error {
	var errs []error

	if _, err := i.cache.Del(ctx, SessionKey(sessionID)); err != nil {
		errs = append(errs, fmt.Errorf("del session key: %w", err))
	}
	if _, err := i.cache.DelPattern(ctx, SessionListPattern()); err != nil {
		errs = append(errs, fmt.Errorf("del list pattern: %w", err))
	}
	if participantID != 0 {
		if _, err := i.cache.DelPattern(ctx, ParticipantSessionsPattern(participantID)); err != nil {
			errs = append(errs, fmt.Errorf("del participant pattern: %w", err))
		}
	}

	return errors.Join(errs...)
}
