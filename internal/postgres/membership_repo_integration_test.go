package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageturn/session-service/internal/domain"
)

// Интеграционные тесты против реального postgres:
//
//	TEST_DATABASE_URL=postgres://... go test ./internal/postgres/ -run Integration
func setupIntegration(t *testing.T) (*SessionRepository, *MembershipRepository) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	require.NoError(t, MigrateUp(dsn, "../../migrations"))

	pool, err := NewPool(ctx, Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewSessionRepository(pool), NewMembershipRepository(pool)
}

func createIntegrationSession(t *testing.T, repo *SessionRepository, max int) *domain.Session {
	t.Helper()
	s := &domain.Session{Title: "integration", MaxParticipants: max}
	require.NoError(t, repo.Create(context.Background(), s))
	return s
}

func TestIntegrationConcurrentJoinsRespectCapacity(t *testing.T) {
	sessions, memberships := setupIntegration(t)
	ctx := context.Background()

	s := createIntegrationSession(t, sessions, 2)

	const joiners = 8
	var wg sync.WaitGroup
	errs := make([]error, joiners)
	for i := range joiners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = memberships.Join(ctx, s.ID, int64(i+1), domain.RoleMember)
		}()
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrSessionFull):
			full++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, joiners-2, full)

	got, err := sessions.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ParticipantCount)
	assert.Equal(t, 2, got.PeakParticipants)

	// денормализованный счётчик сходится с ledger
	count, err := memberships.CountActive(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ParticipantCount, count)
}

func TestIntegrationRejoinKeepsSingleRow(t *testing.T) {
	sessions, memberships := setupIntegration(t)
	ctx := context.Background()

	s := createIntegrationSession(t, sessions, 3)

	first, err := memberships.Join(ctx, s.ID, 42, domain.RoleHost)
	require.NoError(t, err)
	require.True(t, first.Changed)

	left, err := memberships.Leave(ctx, s.ID, 42)
	require.NoError(t, err)
	assert.True(t, left.Changed)
	assert.Equal(t, 0, left.ParticipantCount)

	m, err := memberships.Get(ctx, s.ID, 42)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.False(t, m.IsActive)
	assert.NotNil(t, m.LeftAt)

	again, err := memberships.Join(ctx, s.ID, 42, domain.RoleMember)
	require.NoError(t, err)
	assert.True(t, again.Changed)
	assert.Equal(t, first.MembershipID, again.MembershipID, "same row reactivated")

	m, err = memberships.Get(ctx, s.ID, 42)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.IsActive)
	assert.Nil(t, m.LeftAt)
	// role выставлен при создании и не перезаписывается
	assert.Equal(t, domain.RoleHost, m.Role)

	// peak не падает после цикла leave/join
	got, err := sessions.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ParticipantCount)
	assert.Equal(t, 1, got.PeakParticipants)
}

func TestIntegrationLeaveIdempotent(t *testing.T) {
	sessions, memberships := setupIntegration(t)
	ctx := context.Background()

	s := createIntegrationSession(t, sessions, 3)

	_, err := memberships.Join(ctx, s.ID, 1, domain.RoleMember)
	require.NoError(t, err)

	first, err := memberships.Leave(ctx, s.ID, 1)
	require.NoError(t, err)
	assert.True(t, first.Changed)

	second, err := memberships.Leave(ctx, s.ID, 1)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, 0, second.ParticipantCount)

	// выход никогда не заходившего — no-op
	third, err := memberships.Leave(ctx, s.ID, 99)
	require.NoError(t, err)
	assert.False(t, third.Changed)
}

func TestIntegrationTerminalLockout(t *testing.T) {
	sessions, memberships := setupIntegration(t)
	ctx := context.Background()

	s := createIntegrationSession(t, sessions, 3)

	_, err := sessions.UpdateStatus(ctx, s.ID, domain.StatusEnded)
	require.NoError(t, err)

	_, err = memberships.Join(ctx, s.ID, 1, domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrSessionNotJoinable)

	// terminal необратим
	_, err = sessions.UpdateStatus(ctx, s.ID, domain.StatusActive)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestIntegrationListPagination(t *testing.T) {
	sessions, _ := setupIntegration(t)
	ctx := context.Background()

	for range 3 {
		createIntegrationSession(t, sessions, 2)
	}

	page1, cursor, err := sessions.List(ctx, 2, "")
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	require.NotEmpty(t, cursor)

	page2, _, err := sessions.List(ctx, 2, cursor)
	require.NoError(t, err)
	require.NotEmpty(t, page2)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)
}
