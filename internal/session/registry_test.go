package session_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/session"
	"github.com/msomdec/sewing-vault/internal/session/sessiontest"
)

func countingFactory(key domain.ViewKey, calls *int) session.Factory {
	return func() (session.View, error) {
		*calls++
		return sessiontest.NewView(key), nil
	}
}

func TestOpenOrFocus_SameKeyCreatesOnce(t *testing.T) {
	reg := session.NewRegistry()
	key := domain.PatternDetailKey("p1")
	calls := 0

	first, created, err := reg.OpenOrFocus(key, countingFactory(key, &calls))
	assert.Equal(t, err, nil)
	assert.Equal(t, created, true)

	second, created, err := reg.OpenOrFocus(key, countingFactory(key, &calls))
	assert.Equal(t, err, nil)
	assert.Equal(t, created, false)

	assert.Equal(t, calls, 1)
	assert.Equal(t, first == second, true)
	assert.Equal(t, first.(*sessiontest.View).Focused(), 1)
}

func TestOpenOrFocus_AfterCloseAndForgetCreatesAgain(t *testing.T) {
	reg := session.NewRegistry()
	key := domain.AddNewKey()
	calls := 0

	v, _, err := reg.OpenOrFocus(key, countingFactory(key, &calls))
	assert.Equal(t, err, nil)

	reg.CloseAndForget(key)
	assert.Equal(t, v.(*sessiontest.View).Closed(), true)

	_, created, err := reg.OpenOrFocus(key, countingFactory(key, &calls))
	assert.Equal(t, err, nil)
	assert.Equal(t, created, true)
	assert.Equal(t, calls, 2)
}

func TestOpenOrFocus_NaturalCloseFreesKey(t *testing.T) {
	reg := session.NewRegistry()
	key := domain.ImageDetailKey("p1", 2)
	calls := 0

	v, _, _ := reg.OpenOrFocus(key, countingFactory(key, &calls))
	v.Close() // the user closed the window

	_, err := reg.Get(key)
	assert.Equal(t, errors.Is(err, domain.ErrNotFound), true)

	_, created, _ := reg.OpenOrFocus(key, countingFactory(key, &calls))
	assert.Equal(t, created, true)
	assert.Equal(t, calls, 2)

	// The watcher for the old view must not evict the new one.
	time.Sleep(10 * time.Millisecond)
	_, err = reg.Get(key)
	assert.Equal(t, err, nil)
}

func TestOpenOrFocus_FactoryError(t *testing.T) {
	reg := session.NewRegistry()
	key := domain.MainListKey()
	boom := errors.New("boom")

	_, created, err := reg.OpenOrFocus(key, func() (session.View, error) { return nil, boom })
	assert.Equal(t, created, false)
	assert.Equal(t, errors.Is(err, boom), true)

	_, err = reg.Get(key)
	assert.Equal(t, errors.Is(err, domain.ErrNotFound), true)
}

func TestOpenOrFocus_ConcurrentCallsCreateOneView(t *testing.T) {
	reg := session.NewRegistry()
	key := domain.PatternDetailKey("p1")

	var mu sync.Mutex
	calls := 0
	factory := func() (session.View, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return sessiontest.NewView(key), nil
	}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := reg.OpenOrFocus(key, factory); err != nil {
				t.Errorf("OpenOrFocus: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, calls, 1)
}

func TestCloseAndForget_Idempotent(t *testing.T) {
	reg := session.NewRegistry()
	reg.CloseAndForget(domain.AddNewKey())
	reg.CloseAndForget(domain.AddNewKey())
	assert.Equal(t, len(reg.Keys()), 0)
}

func TestKeysAndCloseAll(t *testing.T) {
	reg := session.NewRegistry()
	calls := 0
	keys := []domain.ViewKey{domain.MainListKey(), domain.PatternDetailKey("a"), domain.ImageDetailKey("a", 0)}
	var views []session.View
	for _, k := range keys {
		v, _, err := reg.OpenOrFocus(k, countingFactory(k, &calls))
		assert.Equal(t, err, nil)
		views = append(views, v)
	}
	assert.Equal(t, len(reg.Keys()), 3)

	reg.CloseAll()
	assert.Equal(t, len(reg.Keys()), 0)
	for _, v := range views {
		assert.Equal(t, v.(*sessiontest.View).Closed(), true)
	}
}
