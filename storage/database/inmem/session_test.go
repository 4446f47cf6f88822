package inmemdb

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/session"
	"github.com/earnyourwings/wings/core/user"
	testutil "github.com/earnyourwings/wings/tests"
)

func newRepo(t *testing.T, ttl time.Duration) (*SessionRepository, *int) {
	t.Helper()
	var created int
	backend := testutil.NewBackend()
	logger := &testutil.Logger{}
	factory := func(usr user.User) *session.Session {
		created++
		return session.New(usr, backend, logger, nil)
	}
	return NewSessionRepository(Open(), factory, logger, ttl), &created
}

func mockNow(t *testing.T, now *time.Time) {
	t.Helper()
	NowFunc = func() time.Time { return *now }
	t.Cleanup(func() { NowFunc = time.Now })
}

func TestSessionRepository_GetOrCreateSession(t *testing.T) {
	repo, created := newRepo(t, 0)
	jane := testutil.CreateUser(t, "u1", "Jane")
	john := testutil.CreateUser(t, "u2", "John")

	s1, err := repo.GetOrCreateSession(jane)
	require.NoError(t, err)
	s2, err := repo.GetOrCreateSession(jane)
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	s3, err := repo.GetOrCreateSession(john)
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, "u2", s3.User().ID)

	assert.Equal(t, 2, *created)
	assert.Equal(t, 2, repo.CountSessions())

	_, err = repo.GetOrCreateSession(user.User{})
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestSessionRepository_DeleteSession(t *testing.T) {
	repo, _ := newRepo(t, 0)
	jane := testutil.CreateUser(t, "u1", "Jane")

	s1, err := repo.GetOrCreateSession(jane)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteSession(jane.ID))
	assert.True(t, errors.Is(repo.DeleteSession(jane.ID), core.ErrNotFound))

	s2, err := repo.GetOrCreateSession(jane)
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
}

func TestSessionRepository_EvictIdle(t *testing.T) {
	now := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	mockNow(t, &now)

	tests := []struct {
		name        string
		ttl         time.Duration
		elapsed     time.Duration
		touch       bool
		wantEvicted int
	}{
		{name: "fresh", ttl: time.Hour, elapsed: 30 * time.Minute, wantEvicted: 0},
		{name: "idle", ttl: time.Hour, elapsed: 2 * time.Hour, wantEvicted: 2},
		{name: "touched", ttl: time.Hour, elapsed: 2 * time.Hour, touch: true, wantEvicted: 1},
		{name: "no ttl", ttl: 0, elapsed: 1000 * time.Hour, wantEvicted: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := now
			defer func() { now = start }()

			repo, _ := newRepo(t, tt.ttl)
			jane := testutil.CreateUser(t, "u1", "Jane")
			_, _ = repo.GetOrCreateSession(jane)
			_, _ = repo.GetOrCreateSession(testutil.CreateUser(t, "u2", "John"))

			now = now.Add(tt.elapsed)
			if tt.touch {
				_, _ = repo.GetOrCreateSession(jane)
			}
			assert.Equal(t, tt.wantEvicted, repo.EvictIdle())
			assert.Equal(t, 2-tt.wantEvicted, repo.CountSessions())
		})
	}
}

func TestSessionRepository_StartSweeper(t *testing.T) {
	repo, _ := newRepo(t, time.Hour)
	require.NoError(t, repo.StartSweeper(time.Hour))
	assert.NotNil(t, repo.sched)
	repo.Close()
	assert.Nil(t, repo.sched)

	noTTL, _ := newRepo(t, 0)
	require.NoError(t, noTTL.StartSweeper(time.Hour))
	assert.Nil(t, noTTL.sched)
}
