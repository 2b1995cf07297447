package httpmw

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

type ctxKey string

const (
	ctxKeyToken         ctxKey = "token"
	ctxKeyParticipantID ctxKey = "participant_id"
)

// Identity приходит уже аутентифицированной с гейтвея: Bearer + X-User-ID.
// Токен здесь не проверяется, только пробрасывается.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || len(auth) <= 7 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing bearer token"}`))
			return
		}

		idHeader := r.Header.Get("X-User-ID")
		if idHeader == "" {
			http.Error(w, `{"error":"missing X-User-ID"}`, http.StatusUnauthorized)
			return
		}

		pid, err := strconv.ParseInt(idHeader, 10, 64)
		if err != nil || pid <= 0 {
			http.Error(w, `{"error":"invalid X-User-ID"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyToken, strings.TrimSpace(auth[7:]))
		ctx = context.WithValue(ctx, ctxKeyParticipantID, pid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ParticipantIDFromCtx(ctx context.Context) int64 {
	if v := ctx.Value(ctxKeyParticipantID); v != nil {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
