package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pageturn/session-service/internal/domain"
	"github.com/pageturn/session-service/internal/postgres"
)

// MembershipLedger — транзакционный журнал членств. Реализация обязана делать
// решение о допуске и запись одной атомарной единицей (см. postgres.MembershipRepository).
type MembershipLedger interface {
	Join(ctx context.Context, sessionID string, participantID int64, role domain.Role) (*postgres.JoinResult, error)
	Leave(ctx context.Context, sessionID string, participantID int64) (*postgres.LeaveResult, error)
	ListActive(ctx context.Context, sessionID string) ([]domain.Membership, error)
}

type JoinOutcome struct {
	MembershipID     string
	ParticipantCount int
	PeakParticipants int
	Changed          bool
}

type LeaveOutcome struct {
	ParticipantCount int
	Changed          bool
}

// MemberService — единая точка входа join/leave: ledger, ограниченные повторы
// при конфликте записи, инвалидация кэша после commit.
type MemberService struct {
	ledger MembershipLedger
	sync   *postCommitInvalidator

	retryAttempts int
	retryBackoff  time.Duration
}

func NewMemberService(ledger MembershipLedger, inv Invalidator, q InvalidateQueue) *MemberService {
	return &MemberService{
		ledger:        ledger,
		sync:          newPostCommitInvalidator(inv, q),
		retryAttempts: 3,
		retryBackoff:  50 * time.Millisecond,
	}
}

func (s *MemberService) SetRetryPolicy(attempts int, backoff time.Duration) {
	if attempts > 0 {
		s.retryAttempts = attempts
	}
	if backoff > 0 {
		s.retryBackoff = backoff
	}
}

func (s *MemberService) Join(ctx context.Context, sessionID string, participantID int64) (*JoinOutcome, error) {
	return s.JoinAs(ctx, sessionID, participantID, domain.RoleMember)
}

// JoinAs идемпотентен: повторный вызов для активного участника — успех без
// изменения состояния (Changed=false).
func (s *MemberService) JoinAs(ctx context.Context, sessionID string, participantID int64, role domain.Role) (*JoinOutcome, error) {
	var res *postgres.JoinResult
	var err error
	for attempt := 1; ; attempt++ {
		res, err = s.ledger.Join(ctx, sessionID, participantID, role)
		if err == nil || !postgres.IsRetryable(err) {
			break
		}
		if attempt >= s.retryAttempts {
			err = fmt.Errorf("join: retries exhausted: %w", err)
			break
		}
		if werr := s.wait(ctx, attempt); werr != nil {
			return nil, werr
		}
	}
	if err != nil {
		return nil, err
	}

	if res.Changed {
		s.sync.after(sessionID, participantID)
	}
	return &JoinOutcome{
		MembershipID:     res.MembershipID,
		ParticipantCount: res.ParticipantCount,
		PeakParticipants: res.PeakParticipants,
		Changed:          res.Changed,
	}, nil
}

// Leave идемпотентен; повторный выход возвращает успех с Changed=false.
func (s *MemberService) Leave(ctx context.Context, sessionID string, participantID int64) (*LeaveOutcome, error) {
	var res *postgres.LeaveResult
	var err error
	for attempt := 1; ; attempt++ {
		res, err = s.ledger.Leave(ctx, sessionID, participantID)
		if err == nil || !postgres.IsRetryable(err) {
			break
		}
		if attempt >= s.retryAttempts {
			err = fmt.Errorf("leave: retries exhausted: %w", err)
			break
		}
		if werr := s.wait(ctx, attempt); werr != nil {
			return nil, werr
		}
	}
	if err != nil {
		return nil, err
	}

	if res.Changed {
		s.sync.after(sessionID, participantID)
	}
	return &LeaveOutcome{
		ParticipantCount: res.ParticipantCount,
		Changed:          res.Changed,
	}, nil
}

func (s *MemberService) ListParticipants(ctx context.Context, sessionID string) ([]domain.Membership, error) {
	return s.ledger.ListActive(ctx, sessionID)
}

// wait — линейный backoff между попытками, уважает отмену контекста.
func (s *MemberService) wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(attempt) * s.retryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
