package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pageturn/session-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JoinResult struct {
	MembershipID     string
	ParticipantCount int
	PeakParticipants int
	Changed          bool
}

type LeaveResult struct {
	ParticipantCount int
	Changed          bool
}

type MembershipRepository struct {
	db *pgxpool.Pool
}

func NewMembershipRepository(db *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Join — вступление в сессию одной транзакцией. Строка сессии берётся
// FOR UPDATE: параллельные Join/Leave по той же сессии сериализуются и не
// пробивают max_participants. Решение о допуске принимается по снимку под
// блокировкой, запись — в той же транзакции.
func (r *MembershipRepository) Join(ctx context.Context, sessionID string, participantID int64, role domain.Role) (*JoinResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var s domain.Session
	query := `SELECT ` + sessionColumns + ` FROM reading_sessions WHERE id=$1 FOR UPDATE`
	if err := scanSession(tx.QueryRow(ctx, query, sessionID), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	if !s.Status.Joinable() {
		return nil, domain.ErrSessionNotJoinable
	}

	var existing *domain.Membership
	var m domain.Membership
	err = tx.QueryRow(ctx, `
		SELECT id, is_active FROM session_memberships
		WHERE session_id=$1 AND participant_id=$2`,
		sessionID, participantID).Scan(&m.ID, &m.IsActive)
	switch {
	case err == nil:
		existing = &m
	case errors.Is(err, pgx.ErrNoRows):
		// первый вход — строки ещё нет
	default:
		return nil, err
	}

	switch domain.Admit(&s, existing) {
	case domain.DecisionAlreadyActive:
		// идемпотентный no-op, записей не было — коммит не обязателен
		return &JoinResult{
			MembershipID:     existing.ID,
			ParticipantCount: s.ParticipantCount,
			PeakParticipants: s.PeakParticipants,
		}, nil
	case domain.DecisionFull:
		return nil, domain.ErrSessionFull
	}

	// create-once-then-reactivate: у существующей строки role не трогаем
	var membershipID string
	if err := tx.QueryRow(ctx, `
		INSERT INTO session_memberships (session_id, participant_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, participant_id)
		DO UPDATE SET is_active=TRUE, joined_at=now(), left_at=NULL
		RETURNING id`,
		sessionID, participantID, role).Scan(&membershipID); err != nil {
		return nil, err
	}

	newCount := s.ParticipantCount + 1
	var peak int
	if err := tx.QueryRow(ctx, `
		UPDATE reading_sessions
		SET participant_count=$2,
		    peak_participants=GREATEST(peak_participants, $2)
		WHERE id=$1
		RETURNING peak_participants`,
		sessionID, newCount).Scan(&peak); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &JoinResult{
		MembershipID:     membershipID,
		ParticipantCount: newCount,
		PeakParticipants: peak,
		Changed:          true,
	}, nil
}

// Leave идемпотентен: повторный выход — no-op. peak_participants не трогаем.
func (r *MembershipRepository) Leave(ctx context.Context, sessionID string, participantID int64) (*LeaveResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var s domain.Session
	query := `SELECT ` + sessionColumns + ` FROM reading_sessions WHERE id=$1 FOR UPDATE`
	if err := scanSession(tx.QueryRow(ctx, query, sessionID), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	cmd, err := tx.Exec(ctx, `
		UPDATE session_memberships
		SET is_active=FALSE, left_at=now()
		WHERE session_id=$1 AND participant_id=$2 AND is_active`,
		sessionID, participantID)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return &LeaveResult{ParticipantCount: s.ParticipantCount}, nil
	}

	if s.ParticipantCount == 0 {
		// счётчик разошёлся с ledger; ниже нуля не уходим
		slog.Warn("participant_count already zero on leave, clamping",
			"session_id", sessionID, "participant_id", participantID)
	}
	var newCount int
	if err := tx.QueryRow(ctx, `
		UPDATE reading_sessions
		SET participant_count=GREATEST(participant_count-1, 0)
		WHERE id=$1
		RETURNING participant_count`,
		sessionID).Scan(&newCount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &LeaveResult{ParticipantCount: newCount, Changed: true}, nil
}

func (r *MembershipRepository) Get(ctx context.Context, sessionID string, participantID int64) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.QueryRow(ctx, `
		SELECT id, session_id, participant_id, role, is_active, joined_at, left_at
		FROM session_memberships
		WHERE session_id=$1 AND participant_id=$2`,
		sessionID, participantID).
		Scan(&m.ID, &m.SessionID, &m.ParticipantID, &m.Role, &m.IsActive, &m.JoinedAt, &m.LeftAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) ListActive(ctx context.Context, sessionID string) ([]domain.Membership, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, participant_id, role, is_active, joined_at, left_at
		FROM session_memberships
		WHERE session_id=$1 AND is_active
		ORDER BY joined_at ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.ID, &m.SessionID, &m.ParticipantID, &m.Role,
			&m.IsActive, &m.JoinedAt, &m.LeftAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *MembershipRepository) CountActive(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_memberships WHERE session_id=$1 AND is_active`,
		sessionID).Scan(&count)
	return count, err
}
