package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pageturn/session-service/internal/domain"
	"github.com/pageturn/session-service/internal/postgres"
	"github.com/pageturn/session-service/internal/service"
	httpmw "github.com/pageturn/session-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	sessionSvc *service.SessionService
	memberSvc  *service.MemberService
	validate   *validator.Validate
}

func NewHandler(session *service.SessionService, member *service.MemberService) *Handler {
	return &Handler{
		sessionSvc: session,
		memberSvc:  member,
		validate:   validator.New(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError — единая таблица доменная-ошибка -> статус. Всё, что не бизнес-
// исход, уходит 500-кой.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
	case errors.Is(err, domain.ErrSessionFull):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "session full"})
	case errors.Is(err, domain.ErrSessionNotJoinable):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "session not joinable"})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "invalid transition"})
	case errors.Is(err, postgres.ErrInvalidCursor):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
	default:
		slog.Error("handler."+op, slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func mapSession(s *domain.Session) SessionItem {
	return SessionItem{
		ID:               s.ID,
		Title:            s.Title,
		Status:           string(s.Status),
		MaxParticipants:  s.MaxParticipants,
		ParticipantCount: s.ParticipantCount,
		PeakParticipants: s.PeakParticipants,
		CreatedAt:        s.CreatedAt,
	}
}

// POST /sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	hostID := httpmw.ParticipantIDFromCtx(r.Context())
	if hostID == 0 {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing participant id"})
		return
	}

	sess, err := h.sessionSvc.CreateSession(r.Context(), req.Title, req.MaxParticipants, hostID)
	if err != nil {
		writeError(w, "CreateSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, mapSession(sess))
}

// GET /sessions?limit=&cursor=
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	sessions, next, err := h.sessionSvc.ListSessions(r.Context(), limit, cursor)
	if err != nil {
		writeError(w, "ListSessions", err)
		return
	}
	resp := SessionsListResponse{Items: make([]SessionItem, 0, len(sessions)), NextCursor: next}
	for i := range sessions {
		resp.Items = append(resp.Items, mapSession(&sessions[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionSvc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSession(sess))
}

// POST /sessions/{id}/join
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	participantID := httpmw.ParticipantIDFromCtx(r.Context())
	if participantID == 0 {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing participant id"})
		return
	}

	out, err := h.memberSvc.Join(r.Context(), sessionID, participantID)
	if err != nil {
		writeError(w, "Join", err)
		return
	}
	writeJSON(w, http.StatusOK, JoinResponse{
		SessionID:        sessionID,
		MembershipID:     out.MembershipID,
		ParticipantCount: out.ParticipantCount,
		Changed:          out.Changed,
	})
}

// POST /sessions/{id}/leave
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	participantID := httpmw.ParticipantIDFromCtx(r.Context())
	if participantID == 0 {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing participant id"})
		return
	}

	out, err := h.memberSvc.Leave(r.Context(), sessionID, participantID)
	if err != nil {
		writeError(w, "Leave", err)
		return
	}
	writeJSON(w, http.StatusOK, LeaveResponse{
		SessionID:        sessionID,
		ParticipantCount: out.ParticipantCount,
		Changed:          out.Changed,
	})
}

// GET /sessions/{id}/participants
func (h *Handler) Participants(w http.ResponseWriter, r *http.Request) {
	items, err := h.memberSvc.ListParticipants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "Participants", err)
		return
	}
	resp := ParticipantsResponse{Items: make([]ParticipantItem, 0, len(items))}
	for _, m := range items {
		resp.Items = append(resp.Items, ParticipantItem{
			ParticipantID: strconv.FormatInt(m.ParticipantID, 10),
			Role:          string(m.Role),
			JoinedAt:      m.JoinedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /sessions/{id}/{pause|resume|end|cancel}
func (h *Handler) Transition(next domain.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.sessionSvc.Transition(r.Context(), chi.URLParam(r, "id"), next)
		if err != nil {
			writeError(w, "Transition", err)
			return
		}
		writeJSON(w, http.StatusOK, mapSession(sess))
	}
}
