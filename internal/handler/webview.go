package handler

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/session"
	"github.com/msomdec/sewing-vault/internal/view"
)

// webView is a session.View backed by a browser window. Updates queue until
// the window's event stream claims the view; a view nobody claims within
// its TTL (a blocked popup, say) closes itself.
type webView struct {
	key    domain.ViewKey
	wake   chan struct{}
	done   chan struct{}
	finish sync.Once

	mu      sync.Mutex
	queue   []session.Update
	focus   bool
	closing bool
	claimed bool
	expiry  *time.Timer

	// Images picked in this window, submitted with the pattern form.
	cover  []byte
	images [][]byte
}

func newWebView(key domain.ViewKey, ttl time.Duration) *webView {
	v := &webView{
		key:  key,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	if ttl > 0 {
		v.expiry = time.AfterFunc(ttl, v.end)
	}
	return v
}

func (v *webView) Key() domain.ViewKey { return v.key }

func (v *webView) Push(u session.Update) {
	v.mu.Lock()
	if v.ended() || v.closing {
		v.mu.Unlock()
		return
	}
	if p, ok := u.(session.PickedUpdate); ok {
		v.stage(p)
	}
	v.queue = append(v.queue, u)
	v.mu.Unlock()
	v.signal()
}

func (v *webView) Focus() {
	v.mu.Lock()
	v.focus = true
	v.mu.Unlock()
	v.signal()
}

// Close asks the window to close once queued updates are written. An
// unclaimed view ends at once.
func (v *webView) Close() {
	v.mu.Lock()
	v.closing = true
	claimed := v.claimed
	v.mu.Unlock()

	if !claimed {
		v.end()
		return
	}
	v.signal()
}

func (v *webView) Done() <-chan struct{} { return v.done }

// claim binds the view to an event stream. Only the first caller wins.
func (v *webView) claim() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.claimed || v.ended() {
		return false
	}
	v.claimed = true
	if v.expiry != nil {
		v.expiry.Stop()
	}
	return true
}

// staged returns copies of the images picked in this window.
func (v *webView) staged() (cover []byte, images [][]byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.cover), slices.Clone(v.images)
}

func (v *webView) stage(p session.PickedUpdate) {
	switch p.Slot {
	case view.SlotCover:
		if len(p.Images) > 0 {
			v.cover = p.Images[0]
		}
	case view.SlotImages:
		v.images = append(v.images, p.Images...)
	}
}

// serve writes queued updates to w until ctx ends or the view is
// closed.
func (v *webView) serve(ctx context.Context, w streamWriter) {
	defer v.end()

	for {
		v.mu.Lock()
		queue, focus, closing := v.queue, v.focus, v.closing
		v.queue, v.focus = nil, false
		v.mu.Unlock()

		for _, u := range queue {
			if err := w.update(u); err != nil {
				return
			}
		}
		if focus {
			if err := w.script("window.focus()"); err != nil {
				return
			}
		}
		if closing {
			w.script("window.close()")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-v.done:
			return
		case <-v.wake:
		}
	}
}

// streamWriter is what serve needs from an event stream.
type streamWriter interface {
	update(u session.Update) error
	script(js string) error
}

func (v *webView) signal() {
	select {
	case v.wake <- struct{}{}:
	default:
	}
}

func (v *webView) end() {
	v.finish.Do(func() { close(v.done) })
}

func (v *webView) ended() bool {
	select {
	case <-v.done:
		return true
	default:
		return false
	}
}
