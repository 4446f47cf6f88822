package inmemdb

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/session"
	"github.com/earnyourwings/wings/core/user"
)

// SessionFactory builds the session of a user seen for the first time.
type SessionFactory func(usr user.User) *session.Session

type SessionRepository struct {
	db      *sessionTable
	newSess SessionFactory
	logger  core.Logger
	idleTTL time.Duration
	sched   *gocron.Scheduler
}

var _ session.Repository = (*SessionRepository)(nil)

// NewSessionRepository returns a registry keeping one session per user.
// Sessions unused for longer than idleTTL are dropped by EvictIdle; a zero idleTTL keeps them forever.
func NewSessionRepository(db *DB, newSess SessionFactory, logger core.Logger, idleTTL time.Duration) *SessionRepository {
	return &SessionRepository{
		db:      db.session,
		newSess: newSess,
		logger:  logger,
		idleTTL: idleTTL,
	}
}

func (repo *SessionRepository) GetOrCreateSession(usr user.User) (*session.Session, error) {
	if usr.ID == "" {
		return nil, errors.Wrap(core.ErrNotFound, "session without a user")
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	now := NowFunc()
	if row, ok := repo.db.table[usr.ID]; ok {
		row.lastSeen = now
		return row.sess, nil
	}
	sess := repo.newSess(usr)
	repo.db.table[usr.ID] = &sessionRow{sess: sess, lastSeen: now}
	return sess, nil
}

// DeleteSession forgets the user's session; the next request starts from a fresh one.
func (repo *SessionRepository) DeleteSession(userID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[userID]; !ok {
		return errors.Wrapf(core.ErrNotFound, "session of %q", userID)
	}
	delete(repo.db.table, userID)
	return nil
}

func (repo *SessionRepository) CountSessions() int {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.table)
}

// EvictIdle drops the sessions not used within the idle TTL and returns how many were dropped.
func (repo *SessionRepository) EvictIdle() int {
	if repo.idleTTL <= 0 {
		return 0
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	deadline := NowFunc().Add(-repo.idleTTL)
	var evicted int
	for id, row := range repo.db.table {
		if row.lastSeen.Before(deadline) {
			delete(repo.db.table, id)
			evicted++
		}
	}
	if evicted > 0 {
		repo.logger.Debug(fmt.Sprintf("evicted %d idle session(s)", evicted))
	}
	return evicted
}

// StartSweeper runs EvictIdle every interval until Close.
func (repo *SessionRepository) StartSweeper(interval time.Duration) error {
	if interval <= 0 || repo.idleTTL <= 0 || repo.sched != nil {
		return nil
	}
	sched := gocron.NewScheduler(time.UTC)
	if _, err := sched.Every(interval).Do(repo.EvictIdle); err != nil {
		return errors.Wrap(err, "scheduling idle session sweeper")
	}
	sched.StartAsync()
	repo.sched = sched
	return nil
}

func (repo *SessionRepository) Close() {
	if repo.sched != nil {
		repo.sched.Stop()
		repo.sched = nil
	}
}
