package magic

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AsyncSessionFactory hands out context-aware sessions bound to one engine.
type AsyncSessionFactory struct {
	engine *gorm.DB
	opts   SessionOptions
	logger Logger
}

// Engine returns the engine this factory builds sessions on.
func (sf *AsyncSessionFactory) Engine() *gorm.DB {
	return sf.engine
}

// NewSession begins a transaction with ctx threaded into every statement the
// session issues.
func (sf *AsyncSessionFactory) NewSession(ctx context.Context) (*AsyncSession, error) {
	tx := sf.engine.WithContext(ctx).Begin(txOptions(sf.opts))
	if tx.Error != nil {
		return nil, WrapError(tx.Error, ErrCodeSession, "failed to begin session")
	}

	sess := &AsyncSession{
		id:     uuid.NewString(),
		tx:     tx,
		active: true,
		logger: sf.logger,
	}
	sf.logger.Debug("async session %s started", sess.id)
	return sess, nil
}

// AsyncSession is the context-aware counterpart of Session. Statement
// execution is cancellable through the context given at creation; Rollback
// and Close deliberately ignore cancellation so cleanup always runs.
type AsyncSession struct {
	id     string
	tx     *gorm.DB
	logger Logger

	mu     sync.Mutex
	active bool
}

// ID returns the session identifier used in log lines.
func (s *AsyncSession) ID() string {
	return s.id
}

// DB exposes the transaction handle for queries and writes.
func (s *AsyncSession) DB() *gorm.DB {
	return s.tx
}

// IsActive reports whether the session can still commit or roll back.
func (s *AsyncSession) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Commit commits the unit of work. A context that is already cancelled fails
// the commit so the caller's fault path (rollback, close) takes over.
func (s *AsyncSession) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return WrapError(err, ErrCodeSession, "context cancelled before commit")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return NewError(ErrCodeSession, "session is not active", nil)
	}
	if err := s.tx.Commit().Error; err != nil {
		return WrapError(err, ErrCodeSession, "commit failed")
	}
	s.active = false
	s.logger.Debug("async session %s committed", s.id)
	return nil
}

// Rollback discards the unit of work. Runs even when ctx is cancelled.
func (s *AsyncSession) Rollback(ctx context.Context) error {
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
	s.logger.Debug("async session %s rolled back", s.id)
	return nil
}

// Close releases the session, rolling back if it is still active. Runs even
// when ctx is cancelled.
func (s *AsyncSession) Close(ctx context.Context) error {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active {
		return s.Rollback(ctx)
	}
	return nil
}
