package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/pageturn/session-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, title, status, max_participants, participant_count, peak_participants, created_at`

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row pgx.Row, s *domain.Session) error {
	return row.Scan(&s.ID, &s.Title, &s.Status, &s.MaxParticipants,
		&s.ParticipantCount, &s.PeakParticipants, &s.CreatedAt)
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO reading_sessions (title, max_participants)
		VALUES ($1, $2)
		RETURNING id, status, participant_count, peak_participants, created_at`
	err := r.db.QueryRow(ctx, query, s.Title, s.MaxParticipants).
		Scan(&s.ID, &s.Status, &s.ParticipantCount, &s.PeakParticipants, &s.CreatedAt)
	if err != nil {
		return err
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	query := `SELECT ` + sessionColumns + ` FROM reading_sessions WHERE id=$1`
	if err := scanSession(r.db.QueryRow(ctx, query, id), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// UpdateStatus переводит сессию в next под блокировкой строки: переход
// проверяется по состоянию, которое не может поменяться под ногами.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, next domain.Status) (*domain.Session, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var s domain.Session
	query := `SELECT ` + sessionColumns + ` FROM reading_sessions WHERE id=$1 FOR UPDATE`
	if err := scanSession(tx.QueryRow(ctx, query, id), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	if !s.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, s.Status, next)
	}

	if _, err := tx.Exec(ctx, `UPDATE reading_sessions SET status=$2 WHERE id=$1`, id, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.Status = next
	return &s, nil
}

func (r *SessionRepository) List(ctx context.Context, limit int, cursorStr string) ([]domain.Session, string, error) {
	cur, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM reading_sessions
		WHERE ($1::timestamptz IS NULL OR created_at < $1
		       OR (created_at = $1 AND id < $2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.Title, &s.Status, &s.MaxParticipants,
			&s.ParticipantCount, &s.PeakParticipants, &s.CreatedAt); err != nil {
			return nil, "", err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(sessions) == limit {
		last := sessions[len(sessions)-1]
		cur := Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		nextCursor, _ = EncodeCursor(cur)
	}

	return sessions, nextCursor, nil
}
