package magic

import (
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionFactory hands out synchronous sessions bound to one engine.
// It is created lazily by Factory.SyncSessions and cached for the factory's
// lifetime.
type SessionFactory struct {
	engine *gorm.DB
	opts   SessionOptions
	logger Logger
}

// Engine returns the engine this factory builds sessions on.
func (sf *SessionFactory) Engine() *gorm.DB {
	return sf.engine
}

// NewSession begins a transaction on the engine and wraps it in a Session.
// The caller owns the session and must Commit, Rollback or Close it.
func (sf *SessionFactory) NewSession() (*Session, error) {
	tx := sf.engine.Begin(txOptions(sf.opts))
	if tx.Error != nil {
		return nil, WrapError(tx.Error, ErrCodeSession, "failed to begin session")
	}

	sess := &Session{
		id:     uuid.NewString(),
		tx:     tx,
		active: true,
		logger: sf.logger,
	}
	sf.logger.Debug("session %s started", sess.id)
	return sess, nil
}

func txOptions(opts SessionOptions) *sql.TxOptions {
	if opts.Isolation == IsolationDefault {
		return nil
	}
	return &sql.TxOptions{Isolation: opts.Isolation.sqlLevel()}
}

// Session is a transactional unit of work. It is not safe for use by
// concurrent logical operations; obtain one session per operation.
type Session struct {
	id     string
	tx     *gorm.DB
	logger Logger

	mu     sync.Mutex
	active bool
}

// ID returns the session identifier used in log lines.
func (s *Session) ID() string {
	return s.id
}

// DB exposes the transaction handle for queries and writes.
func (s *Session) DB() *gorm.DB {
	return s.tx
}

// IsActive reports whether the session can still commit or roll back.
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Commit commits the unit of work. Committing an inactive session is an error.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return NewError(ErrCodeSession, "session is not active", nil)
	}
	if err := s.tx.Commit().Error; err != nil {
		return WrapError(err, ErrCodeSession, "commit failed")
	}
	s.active = false
	s.logger.Debug("session %s committed", s.id)
	return nil
}

// Rollback discards the unit of work.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return NewError(ErrCodeSession, "session is not active", nil)
	}
	// A failed rollback cannot be retried; the session is finished either way.
	s.active = false
	if err := s.tx.Rollback().Error; err != nil {
		return WrapError(err, ErrCodeSession, "rollback failed")
	}
	s.logger.Debug("session %s rolled back", s.id)
	return nil
}

// Close releases the session. A still-active session is rolled back; closing
// an already finished session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active {
		return s.Rollback()
	}
	return nil
}
