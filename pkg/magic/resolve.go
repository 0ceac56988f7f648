package magic

// ResolveSession picks the synchronous session a model operation should run
// on. An explicit session always wins, even when the receiver holds a
// different bound one; otherwise the receiver's bound session is used.
// Neither available, or a bound session of the wrong kind, is a
// SESSION_NOT_BOUND error.
func ResolveSession(receiver Sessionable, explicit *Session) (*Session, error) {
	if explicit != nil {
		return explicit, nil
	}
	if receiver != nil {
		if bound := receiver.BoundSession(); bound != nil {
			sess, ok := bound.(*Session)
			if !ok {
				return nil, NewError(ErrCodeNoSession,
					"bound session is not synchronous; pass a session explicitly", nil)
			}
			return sess, nil
		}
	}
	return nil, NewError(ErrCodeNoSession,
		"session not found; bind one with BindSession or pass it explicitly", nil)
}

// ResolveAsyncSession is the context-aware counterpart of ResolveSession.
func ResolveAsyncSession(receiver Sessionable, explicit *AsyncSession) (*AsyncSession, error) {
	if explicit != nil {
		return explicit, nil
	}
	if receiver != nil {
		if bound := receiver.BoundSession(); bound != nil {
			sess, ok := bound.(*AsyncSession)
			if !ok {
				return nil, NewError(ErrCodeNoSession,
					"bound session is not asynchronous; pass a session explicitly", nil)
			}
			return sess, nil
		}
	}
	return nil, NewError(ErrCodeNoSession,
		"session not found; bind one with BindSession or pass it explicitly", nil)
}
