package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/msomdec/sewing-vault/internal/domain"
)

// Factory creates the view for a key that has none.
type Factory func() (View, error)

// Registry maps view keys to live views and guarantees at most one view
// per key. It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	views map[domain.ViewKey]View
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[domain.ViewKey]View)}
}

// OpenOrFocus focuses and returns the live view registered under key. If
// there is none, it calls factory, registers the result and reports
// created=true. The entry is dropped automatically when the view's Done
// channel closes. Lookup and creation happen under one lock, so concurrent
// calls for the same key create a single view.
func (r *Registry) OpenOrFocus(key domain.ViewKey, factory Factory) (v View, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.views[key]; ok && live(existing) {
		existing.Focus()
		return existing, false, nil
	}

	v, err = factory()
	if err != nil {
		return nil, false, fmt.Errorf("create view %s: %w", key, err)
	}
	r.views[key] = v
	go r.forgetWhenDone(key, v)

	slog.Debug("view registered", "key", key.String())
	return v, true, nil
}

// Get returns the live view registered under key.
func (r *Registry) Get(key domain.ViewKey) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[key]
	if !ok || !live(v) {
		return nil, fmt.Errorf("view %s: %w", key, domain.ErrNotFound)
	}
	return v, nil
}

// CloseAndForget closes the view under key and removes the entry. It does
// nothing when no view is registered.
func (r *Registry) CloseAndForget(key domain.ViewKey) {
	r.mu.Lock()
	v, ok := r.views[key]
	delete(r.views, key)
	r.mu.Unlock()

	if ok {
		v.Close()
		slog.Debug("view closed", "key", key.String())
	}
}

// Keys returns the keys of all live views.
func (r *Registry) Keys() []domain.ViewKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]domain.ViewKey, 0, len(r.views))
	for k, v := range r.views {
		if live(v) {
			keys = append(keys, k)
		}
	}
	return keys
}

// CloseAll closes every registered view. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[domain.ViewKey]View)
	r.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
}

func (r *Registry) forgetWhenDone(key domain.ViewKey, v View) {
	<-v.Done()

	r.mu.Lock()
	defer r.mu.Unlock()
	// A newer view may already own the key.
	if r.views[key] == v {
		delete(r.views, key)
		slog.Debug("view gone", "key", key.String())
	}
}

func live(v View) bool {
	select {
	case <-v.Done():
		return false
	default:
		return true
	}
}
