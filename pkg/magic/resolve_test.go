package magic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSession(t *testing.T) {
	bound := &Session{id: "bound", active: true, logger: NewNoOpLogger()}
	explicit := &Session{id: "explicit", active: true, logger: NewNoOpLogger()}

	t.Run("explicit session wins over a bound one", func(t *testing.T) {
		user := &testUser{}
		user.BindSession(bound)

		got, err := ResolveSession(user, explicit)
		require.NoError(t, err)
		assert.Same(t, explicit, got)
	})

	t.Run("bound session used when explicit is nil", func(t *testing.T) {
		user := &testUser{}
		user.BindSession(bound)

		got, err := ResolveSession(user, nil)
		require.NoError(t, err)
		assert.Same(t, bound, got)
	})

	t.Run("neither available", func(t *testing.T) {
		_, err := ResolveSession(&testUser{}, nil)
		assert.True(t, IsErrorCode(err, ErrCodeNoSession))

		_, err = ResolveSession(nil, nil)
		assert.True(t, IsErrorCode(err, ErrCodeNoSession))
	})

	t.Run("bound session of the wrong kind", func(t *testing.T) {
		user := &testUser{}
		user.BindSession(&AsyncSession{id: "async", active: true, logger: NewNoOpLogger()})

		_, err := ResolveSession(user, nil)
		assert.True(t, IsErrorCode(err, ErrCodeNoSession))
	})
}

func TestResolveAsyncSession(t *testing.T) {
	bound := &AsyncSession{id: "bound", active: true, logger: NewNoOpLogger()}
	explicit := &AsyncSession{id: "explicit", active: true, logger: NewNoOpLogger()}

	t.Run("explicit session wins over a bound one", func(t *testing.T) {
		user := &testUser{}
		user.BindSession(bound)

		got, err := ResolveAsyncSession(user, explicit)
		require.NoError(t, err)
		assert.Same(t, explicit, got)
	})

	t.Run("bound session used when explicit is nil", func(t *testing.T) {
		user := &testUser{}
		user.BindSession(bound)

		got, err := ResolveAsyncSession(user, nil)
		require.NoError(t, err)
		assert.Same(t, bound, got)
	})

	t.Run("neither available", func(t *testing.T) {
		_, err := ResolveAsyncSession(&testUser{}, nil)
		assert.True(t, IsErrorCode(err, ErrCodeNoSession))
	})

	t.Run("bound session of the wrong kind", func(t *testing.T) {
		user := &testUser{}
		user.BindSession(&Session{id: "sync", active: true, logger: NewNoOpLogger()})

		_, err := ResolveAsyncSession(user, nil)
		assert.True(t, IsErrorCode(err, ErrCodeNoSession))
	})
}
