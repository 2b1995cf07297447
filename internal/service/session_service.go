package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pageturn/session-service/internal/cache"
	"github.com/pageturn/session-service/internal/domain"
)

type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	UpdateStatus(ctx context.Context, id string, next domain.Status) (*domain.Session, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Session, string, error)
}

// HostJoiner — создатель сессии сразу становится её host-участником.
type HostJoiner interface {
	JoinAs(ctx context.Context, sessionID string, participantID int64, role domain.Role) (*JoinOutcome, error)
}

type SessionService struct {
	repo    SessionStore
	members HostJoiner
	cache   cache.Cache
	sync    *postCommitInvalidator
	viewTTL time.Duration
}

func NewSessionService(repo SessionStore, members HostJoiner, c cache.Cache, inv Invalidator, q InvalidateQueue) *SessionService {
	return &SessionService{
		repo:    repo,
		members: members,
		cache:   c,
		sync:    newPostCommitInvalidator(inv, q),
		viewTTL: 60 * time.Second,
	}
}

func (s *SessionService) SetViewTTL(d time.Duration) {
	if d > 0 {
		s.viewTTL = d
	}
}

// CreateSession создаёт сессию и заводит создателя как host.
func (s *SessionService) CreateSession(ctx context.Context, title string, max int, hostID int64) (*domain.Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("empty title")
	}
	if max <= 0 {
		max = 10
	}
	if max > 50 {
		max = 50
	}

	sess := &domain.Session{
		Title:           title,
		MaxParticipants: max,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("sessionRepo.Create: %w", err)
	}

	out, err := s.members.JoinAs(ctx, sess.ID, hostID, domain.RoleHost)
	if err != nil {
		return nil, fmt.Errorf("join host: %w", err)
	}
	sess.ParticipantCount = out.ParticipantCount
	sess.PeakParticipants = out.PeakParticipants

	return sess, nil
}

// GetSession — read-through: промах или недоступный кэш падают на репозиторий.
func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	key := cache.SessionKey(id)
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key)
		if err == nil {
			var sess domain.Session
			if uerr := json.Unmarshal([]byte(raw), &sess); uerr == nil {
				return &sess, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("session view cache read failed", "session_id", id, "err", err)
		}
	}

	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.storeView(ctx, key, sess)
	return sess, nil
}

func (s *SessionService) ListSessions(ctx context.Context, limit int, cursor string) ([]domain.Session, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	return s.repo.List(ctx, limit, cursor)
}

// Transition — lifecycle-операция (pause/resume/end/cancel); переход проверяет
// state machine внутри репозитория, кэш чистится после commit.
func (s *SessionService) Transition(ctx context.Context, id string, next domain.Status) (*domain.Session, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, next)
	}
	sess, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	s.sync.after(id, 0)
	return sess, nil
}

func (s *SessionService) storeView(ctx context.Context, key string, sess *domain.Session) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.viewTTL); err != nil {
		slog.Warn("session view cache write failed", "key", key, "err", err)
	}
}
