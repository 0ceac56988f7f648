package magic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistrySession(t *testing.T) *Session {
	t.Helper()

	factory := newSyncFactory(t, SessionOptions{})
	sessions, err := factory.SyncSessions()
	require.NoError(t, err)
	sess, err := sessions.NewSession()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestRegistry_RegisterDefaultName(t *testing.T) {
	sess := newRegistrySession(t)
	registry := NewRegistry(sess)

	bound := Register[testUser](registry)
	assert.Same(t, sess, bound.BoundSession().(*Session))

	stored, ok := registry.Lookup("testuser")
	require.True(t, ok)
	assert.Same(t, Sessionable(bound), stored)
}

func TestRegistry_RegisterCustomName(t *testing.T) {
	sess := newRegistrySession(t)
	registry := NewRegistry(sess)

	bound := Register[testUser](registry, "accounts")

	stored, ok := registry.Lookup("accounts")
	require.True(t, ok)
	assert.Same(t, Sessionable(bound), stored)

	_, ok = registry.Lookup("testuser")
	assert.False(t, ok, "custom name must not also register the default name")
}

func TestRegistry_ModelDoesNotStore(t *testing.T) {
	sess := newRegistrySession(t)
	registry := NewRegistry(sess)

	bound := Model[testUser](registry)
	assert.Same(t, sess, bound.BoundSession().(*Session))

	_, ok := registry.Lookup("testuser")
	assert.False(t, ok)
	assert.Empty(t, registry.Names())
}

func TestRegistry_LookupUnknownName(t *testing.T) {
	registry := NewRegistry(newRegistrySession(t))

	stored, ok := registry.Lookup("nonexistent")
	assert.Nil(t, stored)
	assert.False(t, ok)
}

func TestRegistry_Names(t *testing.T) {
	registry := NewRegistry(newRegistrySession(t))

	Register[testUser](registry)
	Register[testUser](registry, "accounts")

	assert.ElementsMatch(t, []string{"testuser", "accounts"}, registry.Names())
}

func TestRegistry_PointerTypeName(t *testing.T) {
	registry := NewRegistry(newRegistrySession(t))

	Register[*testUser](registry)

	_, ok := registry.Lookup("testuser")
	assert.True(t, ok, "pointer types register under the element type name")
}
