package handler

import (
	"log/slog"
	"net/http"

	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/router"
	"github.com/msomdec/sewing-vault/internal/session"
	"github.com/msomdec/sewing-vault/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

// HandleStream is the long-lived event stream of one window. A window
// opened by a command claims the view waiting for it; any other window
// (a reload, a typed URL) is attached as a new view.
// GET /views/stream
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	var signals view.Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	key, err := h.tokens.Parse(signals.ViewToken)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	v := h.claimPending(key)
	if v == nil {
		v = newWebView(key, 0)
		v.claim()
		if err := h.router.Dispatch(r.Context(), router.AttachView{View: v}); err != nil {
			slog.Info("view not attached", "key", key.String(), "error", err)
			// Deliver the notice queued for this window, then end.
			v.Close()
		}
	}

	slog.Debug("view stream connected", "key", key.String())
	sse := datastar.NewSSE(w, r)
	v.serve(r.Context(), &sseWriter{sse: sse, view: v})
	slog.Debug("view stream ended", "key", key.String())
}

func (h *Handler) claimPending(key domain.ViewKey) *webView {
	existing, err := h.registry.Get(key)
	if err != nil {
		return nil
	}
	v, ok := existing.(*webView)
	if !ok || !v.claim() {
		return nil
	}
	return v
}

// sseWriter renders updates as datastar events.
type sseWriter struct {
	sse  *datastar.ServerSentEventGenerator
	view *webView
}

func (s *sseWriter) update(u session.Update) error {
	switch u := u.(type) {
	case session.ListUpdate:
		return s.sse.PatchElementTempl(
			view.PatternList(u.Patterns, u.Search),
			datastar.WithSelectorID("pattern-list"),
			datastar.WithModeInner(),
		)
	case session.DetailUpdate:
		if u.Pattern != nil && u.Pattern.ID != "" {
			if err := s.script("document.title = " + jsString("Sewing Vault - "+u.Pattern.Name)); err != nil {
				return err
			}
		}
		return s.sse.PatchElementTempl(
			view.PatternForm(u.Pattern, u.Garments),
			datastar.WithSelectorID("pattern-form"),
			datastar.WithModeInner(),
		)
	case session.ImageUpdate:
		return s.sse.PatchElementTempl(
			view.ImageFull(u.PatternID, u.PatternName, u.Image),
			datastar.WithSelectorID("image"),
			datastar.WithModeInner(),
		)
	case session.PickedUpdate:
		cover, images := s.view.staged()
		if u.Slot == view.SlotCover {
			return s.sse.PatchElementTempl(
				view.PickedImages(u.Slot, [][]byte{cover}),
				datastar.WithSelectorID("picked-cover"),
				datastar.WithModeInner(),
			)
		}
		return s.sse.PatchElementTempl(
			view.PickedImages(u.Slot, images),
			datastar.WithSelectorID("picked-images"),
			datastar.WithModeInner(),
		)
	case session.LaunchUpdate:
		return s.script(openWindowScript(u.Key))
	case session.NoticeUpdate:
		return s.sse.PatchElementTempl(
			view.Notice(u.Message, u.Error),
			datastar.WithSelectorID("notice"),
			datastar.WithModeInner(),
		)
	}
	return nil
}

func (s *sseWriter) script(js string) error {
	return s.sse.ExecuteScript(js)
}
