package domain

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusEnded, StatusCancelled:
		return true
	}
	return false
}

// Terminal — ended/cancelled не принимают join, навсегда.
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// Joinable — paused тоже пускает участников: это пауза чтения, не блокировка.
func (s Status) Joinable() bool {
	return s == StatusActive || s == StatusPaused
}

func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() || !next.Valid() || s == next {
		return false
	}
	switch next {
	case StatusActive:
		return s == StatusPaused
	case StatusPaused:
		return s == StatusActive
	case StatusEnded, StatusCancelled:
		return true
	}
	return false
}

type Session struct {
	ID               string    `db:"id"`
	Title            string    `db:"title"`
	Status           Status    `db:"status"`
	MaxParticipants  int       `db:"max_participants"`
	ParticipantCount int       `db:"participant_count"`
	PeakParticipants int       `db:"peak_participants"`
	CreatedAt        time.Time `db:"created_at"`
}
