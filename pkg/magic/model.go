package magic

import "gorm.io/gorm"

// AnySession is satisfied by both Session and AsyncSession. Model binding
// and the registry accept either kind.
type AnySession interface {
	DB() *gorm.DB
}

// Sessionable is the capability interface for values that carry a bound
// session. SessionHolder and BoundModel implement it.
type Sessionable interface {
	BoundSession() AnySession
}

// SessionHolder is embedded into model structs to give them a bindable
// session slot. The zero value is unbound. Embed it with a `gorm:"-"` tag so
// the ORM does not treat it as persisted state:
//
//	type User struct {
//		magic.SessionHolder `gorm:"-"`
//		ID   uint
//		Name string
//	}
type SessionHolder struct {
	session AnySession
}

// BindSession binds s to this value in place and returns the holder so call
// sites can chain.
func (h *SessionHolder) BindSession(s AnySession) *SessionHolder {
	h.session = s
	return h
}

// BoundSession returns the bound session, or nil when unbound.
func (h *SessionHolder) BoundSession() AnySession {
	return h.session
}

// BoundModel pairs a model type with the session its operations run on.
// It replaces per-session subclassing: each WithSession call produces an
// independent wrapper and the base model value is never touched.
type BoundModel[T any] struct {
	model   T
	session AnySession
}

// WithSession wraps model with s. The wrapper is independent of model and of
// any other wrapper built from it.
func WithSession[T any](model T, s AnySession) *BoundModel[T] {
	return &BoundModel[T]{model: model, session: s}
}

// Model returns the wrapped model value.
func (b *BoundModel[T]) Model() T {
	return b.model
}

// BoundSession returns the session this wrapper operates on.
func (b *BoundModel[T]) BoundSession() AnySession {
	return b.session
}

// DB returns the bound session's transaction handle scoped to the model type.
func (b *BoundModel[T]) DB() (*gorm.DB, error) {
	if b.session == nil {
		return nil, NewError(ErrCodeNoSession, "no session bound to model; use WithSession", nil)
	}
	return b.session.DB().Model(new(T)), nil
}

// Create inserts value through the bound session. ORM errors propagate
// unchanged.
func (b *BoundModel[T]) Create(value *T) error {
	db, err := b.DB()
	if err != nil {
		return err
	}
	return db.Create(value).Error
}

// Save upserts value through the bound session.
func (b *BoundModel[T]) Save(value *T) error {
	db, err := b.DB()
	if err != nil {
		return err
	}
	return db.Save(value).Error
}

// First loads the first row matching conds into dest.
func (b *BoundModel[T]) First(dest *T, conds ...interface{}) error {
	db, err := b.DB()
	if err != nil {
		return err
	}
	return db.First(dest, conds...).Error
}

// Find loads all rows matching conds into dest.
func (b *BoundModel[T]) Find(dest *[]T, conds ...interface{}) error {
	db, err := b.DB()
	if err != nil {
		return err
	}
	return db.Find(dest, conds...).Error
}

// Delete removes rows matching conds.
func (b *BoundModel[T]) Delete(conds ...interface{}) error {
	if b.session == nil {
		return NewError(ErrCodeNoSession, "no session bound to model; use WithSession", nil)
	}
	return b.session.DB().Delete(new(T), conds...).Error
}
