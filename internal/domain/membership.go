package domain

import "time"

type Role string

const (
	RoleHost      Role = "host"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// Membership — одна строка на пару (session, participant) за всю её историю.
// Повторный join реактивирует ту же строку, не создаёт новую.
type Membership struct {
	ID            string     `db:"id"`
	SessionID     string     `db:"session_id"`
	ParticipantID int64      `db:"participant_id"`
	Role          Role       `db:"role"`
	IsActive      bool       `db:"is_active"`
	JoinedAt      time.Time  `db:"joined_at"`
	LeftAt        *time.Time `db:"left_at"`
}
