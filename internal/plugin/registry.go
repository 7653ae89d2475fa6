package plugin

import (
	"reflect"
	"sync"
)

// Provider supplies the single instance of every plugin type the engine uses.
type Provider interface {
	Plugins() []Plugin
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() []Plugin

func (f ProviderFunc) Plugins() []Plugin { return f() }

// Registry resolves plugins by Go type or interface and by URI. Lookups are
// memoised; nothing is ever unregistered.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	byURI   map[string]Plugin
	byType  map[reflect.Type]Plugin
}

// NewRegistry takes ownership of the provider's plugins. When two plugins
// share a URI the first wins.
func NewRegistry(p Provider) *Registry {
	r := &Registry{
		byURI:  make(map[string]Plugin),
		byType: make(map[reflect.Type]Plugin),
	}
	if p == nil {
		return r
	}
	for _, pl := range p.Plugins() {
		if pl == nil {
			continue
		}
		if _, dup := r.byURI[pl.URI()]; dup {
			continue
		}
		r.plugins = append(r.plugins, pl)
		r.byURI[pl.URI()] = pl
	}
	return r
}

// All returns every plugin in provider order.
func (r *Registry) All() []Plugin {
	return append([]Plugin(nil), r.plugins...)
}

// ByURI returns the plugin registered under uri.
func (r *Registry) ByURI(uri string) (Plugin, bool) {
	p, ok := r.byURI[uri]
	return p, ok
}

// Find returns the first plugin assignable to T, memoising the match.
func Find[T any](r *Registry) (T, bool) {
	var zero T
	key := reflect.TypeOf((*T)(nil)).Elem()
	r.mu.RLock()
	p, ok := r.byType[key]
	r.mu.RUnlock()
	if ok {
		t, _ := p.(T)
		return t, true
	}
	for _, p := range r.plugins {
		if t, ok := p.(T); ok {
			r.mu.Lock()
			r.byType[key] = p
			r.mu.Unlock()
			return t, true
		}
	}
	return zero, false
}

// MustFind is Find for plugins whose absence is a construction error.
func MustFind[T any](r *Registry) (T, error) {
	t, ok := Find[T](r)
	if !ok {
		return t, &MissingError{Type: reflect.TypeOf((*T)(nil)).Elem().String()}
	}
	return t, nil
}

// MissingError reports a plugin type the provider did not supply.
type MissingError struct {
	Type string
}

func (e *MissingError) Error() string { return "plugin: no instance of " + e.Type }
