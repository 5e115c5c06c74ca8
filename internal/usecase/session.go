package usecase

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"onlearn-learner/internal/domain"
	"onlearn-learner/internal/progress"
)

type sessionKey struct {
	learnerID uint
	courseID  uint
}

// viewSession is one learner's open view of one course. mu guards every
// field below it; no remote call is made while it is held.
type viewSession struct {
	key sessionKey

	mu        sync.Mutex
	cred      domain.Credential
	view      *domain.CourseView
	tracker   *progress.Tracker
	debouncer *progress.Debouncer
	lastSeen  time.Time
	closed    bool

	// set while a feedback submission is in flight
	feedbackPending bool
}

// SessionStore keeps the open view sessions of this process.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[sessionKey]*viewSession
	idleTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

func NewSessionStore(idleTimeout time.Duration, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		sessions:    make(map[sessionKey]*viewSession),
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      logger,
	}
}

func (st *SessionStore) get(key sessionKey) *viewSession {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[key]
}

// getOrCreate returns the session for key, building it with create when absent.
func (st *SessionStore) getOrCreate(key sessionKey, create func(*viewSession)) *viewSession {
	if s := st.get(key); s != nil {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[key]; ok {
		return s
	}
	s := &viewSession{key: key, lastSeen: st.now()}
	create(s)
	st.sessions[key] = s
	return s
}

// remove closes the session and drops its pending updates.
func (st *SessionStore) remove(key sessionKey) bool {
	st.mu.Lock()
	s, ok := st.sessions[key]
	delete(st.sessions, key)
	st.mu.Unlock()
	if !ok {
		return false
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.debouncer.Stop()
	return true
}

func (st *SessionStore) touch(s *viewSession) {
	s.lastSeen = st.now()
}

// Len returns the number of open sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep closes sessions idle for longer than the idle timeout.
func (st *SessionStore) Sweep() int {
	if st.idleTimeout <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.idleTimeout)

	var idle []sessionKey
	st.mu.RLock()
	for key, s := range st.sessions {
		s.mu.Lock()
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, key)
		}
		s.mu.Unlock()
	}
	st.mu.RUnlock()

	for _, key := range idle {
		st.remove(key)
	}
	return len(idle)
}

// StartSweeper runs Sweep on the given cron spec until the returned cron is stopped.
func (st *SessionStore) StartSweeper(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := st.Sweep(); n > 0 {
			st.logger.Info("closed idle course views", zap.Int("count", n), zap.Int("open", st.Len()))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// Close stops every session.
func (st *SessionStore) Close() {
	st.mu.RLock()
	keys := make([]sessionKey, 0, len(st.sessions))
	for key := range st.sessions {
		keys = append(keys, key)
	}
	st.mu.RUnlock()

	for _, key := range keys {
		st.remove(key)
	}
}
