// Package sessiontest provides an in-memory session.View for tests.
package sessiontest

import (
	"sync"

	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/session"
)

// View records everything pushed to it.
type View struct {
	key domain.ViewKey

	mu      sync.Mutex
	updates []session.Update
	focused int

	done chan struct{}
	once sync.Once
}

// NewView creates an open View for key.
func NewView(key domain.ViewKey) *View {
	return &View{key: key, done: make(chan struct{})}
}

func (v *View) Key() domain.ViewKey { return v.key }

func (v *View) Push(u session.Update) {
	if v.Closed() {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.updates = append(v.updates, u)
}

func (v *View) Focus() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.focused++
}

func (v *View) Close() {
	v.once.Do(func() { close(v.done) })
}

func (v *View) Done() <-chan struct{} { return v.done }

// Closed reports whether Close has been called.
func (v *View) Closed() bool {
	select {
	case <-v.done:
		return true
	default:
		return false
	}
}

// Focused returns how many times Focus was called.
func (v *View) Focused() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.focused
}

// Updates returns a copy of the updates pushed so far.
func (v *View) Updates() []session.Update {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]session.Update(nil), v.updates...)
}

// Last returns the most recent update of type T pushed to v.
func Last[T session.Update](v *View) (T, bool) {
	updates := v.Updates()
	for i := len(updates) - 1; i >= 0; i-- {
		if u, ok := updates[i].(T); ok {
			return u, true
		}
	}
	var zero T
	return zero, false
}

// Count returns how many updates of type T were pushed to v.
func Count[T session.Update](v *View) int {
	n := 0
	for _, u := range v.Updates() {
		if _, ok := u.(T); ok {
			n++
		}
	}
	return n
}

// Factory creates Views and remembers them by key.
type Factory struct {
	mu    sync.Mutex
	views map[domain.ViewKey][]*View
}

// NewFactory creates an empty Factory.
func NewFactory() *Factory {
	return &Factory{views: make(map[domain.ViewKey][]*View)}
}

// New creates and records a View. It matches router.ViewFactory.
func (f *Factory) New(key domain.ViewKey) session.View {
	v := NewView(key)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views[key] = append(f.views[key], v)
	return v
}

// Created returns how many views were created for key.
func (f *Factory) Created(key domain.ViewKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.views[key])
}

// Latest returns the most recently created view for key, or nil.
func (f *Factory) Latest(key domain.ViewKey) *View {
	f.mu.Lock()
	defer f.mu.Unlock()
	vs := f.views[key]
	if len(vs) == 0 {
		return nil
	}
	return vs[len(vs)-1]
}
