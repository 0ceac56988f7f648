package magic

import "context"

// WithSession runs fn inside a synchronous scoped session.
//
// On normal return the session is committed (unless the sync mode's
// SessionOptions.ReadOnly is set) and then closed. When fn returns an error
// the session is rolled back and closed and fn's error is returned unchanged;
// a failure during rollback or close never replaces it. A panic in fn also
// triggers rollback and close before propagating.
func (f *Factory) WithSession(fn func(*Session) error) error {
	sessions, err := f.SyncSessions()
	if err != nil {
		return err
	}
	sess, err := sessions.NewSession()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			f.discardSync(sess)
			panic(p)
		}
	}()

	if err := fn(sess); err != nil {
		f.discardSync(sess)
		return err
	}

	if !f.opts.SyncSession.ReadOnly {
		if err := sess.Commit(); err != nil {
			f.discardSync(sess)
			return err
		}
	}
	f.closeSync(sess)
	return nil
}

// WithAsyncSession runs fn inside a context-aware scoped session. The same
// commit-or-rollback-and-close guarantees as WithSession apply; additionally,
// a context cancelled while fn runs fails the commit and takes the rollback
// path, and cleanup still runs when ctx is already cancelled.
func (f *Factory) WithAsyncSession(ctx context.Context, fn func(context.Context, *AsyncSession) error) error {
	sessions, err := f.AsyncSessions()
	if err != nil {
		return err
	}
	sess, err := sessions.NewSession(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			f.discardAsync(ctx, sess)
			panic(p)
		}
	}()

	if err := fn(ctx, sess); err != nil {
		f.discardAsync(ctx, sess)
		return err
	}

	if !f.opts.AsyncSession.ReadOnly {
		if err := sess.Commit(ctx); err != nil {
			f.discardAsync(ctx, sess)
			return err
		}
	}
	f.closeAsync(ctx, sess)
	return nil
}

// discardSync rolls the session back and closes it, swallowing cleanup
// failures so they cannot mask the fault that got us here.
func (f *Factory) discardSync(sess *Session) {
	if err := sess.Rollback(); err != nil && !IsErrorCode(err, ErrCodeSession) {
		f.logger.Warn("session %s: rollback failed: %v", sess.ID(), err)
	}
	f.closeSync(sess)
}

func (f *Factory) closeSync(sess *Session) {
	if err := sess.Close(); err != nil {
		f.logger.Warn("session %s: close failed: %v", sess.ID(), err)
	}
}

func (f *Factory) discardAsync(ctx context.Context, sess *AsyncSession) {
	if err := sess.Rollback(ctx); err != nil && !IsErrorCode(err, ErrCodeSession) {
		f.logger.Warn("async session %s: rollback failed: %v", sess.ID(), err)
	}
	f.closeAsync(ctx, sess)
}

func (f *Factory) closeAsync(ctx context.Context, sess *AsyncSession) {
	if err := sess.Close(ctx); err != nil {
		f.logger.Warn("async session %s: close failed: %v", sess.ID(), err)
	}
}
