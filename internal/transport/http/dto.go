package http

import "time"

type CreateSessionRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	MaxParticipants int    `json:"max_participants" validate:"gte=0,lte=500"`
}

type SessionItem struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Status           string    `json:"status"`
	MaxParticipants  int       `json:"max_participants"`
	ParticipantCount int       `json:"participant_count"`
	PeakParticipants int       `json:"peak_participants"`
	CreatedAt        time.Time `json:"created_at"`
}

type SessionsListResponse struct {
	Items      []SessionItem `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type JoinResponse struct {
	SessionID        string `json:"session_id"`
	MembershipID     string `json:"membership_id"`
	ParticipantCount int    `json:"participant_count"`
	Changed          bool   `json:"changed"`
}

type LeaveResponse struct {
	SessionID        string `json:"session_id"`
	ParticipantCount int    `json:"participant_count"`
	Changed          bool   `json:"changed"`
}

type ParticipantItem struct {
	ParticipantID string    `json:"participant_id"`
	Role          string    `json:"role"`
	JoinedAt      time.Time `json:"joined_at"`
}

type ParticipantsResponse struct {
	Items []ParticipantItem `json:"items"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
