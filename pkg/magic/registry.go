package magic

import (
	"reflect"
	"strings"
	"sync"
)

// Registry maps logical model names to session-bound wrappers. A registry is
// scoped to one session, typically one per request.
type Registry struct {
	session AnySession

	mu     sync.RWMutex
	models map[string]Sessionable
}

// NewRegistry creates a registry whose wrappers are bound to s.
func NewRegistry(s AnySession) *Registry {
	return &Registry{
		session: s,
		models:  make(map[string]Sessionable),
	}
}

// Session returns the session this registry binds models to.
func (r *Registry) Session() AnySession {
	return r.session
}

// Lookup returns the wrapper registered under name. Unknown names yield
// (nil, false), never an error.
func (r *Registry) Lookup(name string) (Sessionable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bound, ok := r.models[name]
	return bound, ok
}

// Names returns the registered logical names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	return names
}

func (r *Registry) store(name string, bound Sessionable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[name] = bound
}

// Register binds the registry's session to model type T and stores the
// wrapper under the given name, defaulting to the lower-cased type name.
// Registering an existing name overwrites it.
func Register[T any](r *Registry, name ...string) *BoundModel[T] {
	var zero T
	bound := WithSession(zero, r.session)

	key := defaultModelName[T]()
	if len(name) > 0 && name[0] != "" {
		key = name[0]
	}
	r.store(key, bound)
	return bound
}

// Model returns a fresh wrapper for T bound to the registry's session
// without storing it.
func Model[T any](r *Registry) *BoundModel[T] {
	var zero T
	return WithSession(zero, r.session)
}

func defaultModelName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return strings.ToLower(t.Name())
}
