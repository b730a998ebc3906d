// Package router dispatches commands sent by views. It is the only code
// that writes to the pattern store or opens and closes views.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/service"
	"github.com/msomdec/sewing-vault/internal/session"
)

var (
	// ErrThrottled is returned when a view sends list refreshes faster than
	// the search rate allows. No notice is shown for it.
	ErrThrottled = errors.New("too many requests")
	// ErrAlreadyOpen is returned when a window connects for a view key
	// that another window already holds.
	ErrAlreadyOpen = errors.New("view already open")
	// ErrUnknownCommand is returned for command types the router does not handle.
	ErrUnknownCommand = errors.New("unknown command")
)

// Options tunes the router.
type Options struct {
	// SearchRate and SearchBurst bound list refreshes per view, in
	// requests per second and bucket size.
	SearchRate  float64
	SearchBurst float64
}

// Router executes commands against the pattern services and the view
// registry.
type Router struct {
	patterns *service.PatternService
	images   *service.ImageService
	registry *session.Registry
	newView  ViewFactory
	throttle *service.TokenBucket[domain.ViewKey]

	mu         sync.RWMutex
	vocabulary []string
}

// New creates a Router. Call Close to release its background work.
func New(patterns *service.PatternService, images *service.ImageService, registry *session.Registry, newView ViewFactory, opts Options) *Router {
	if opts.SearchRate <= 0 {
		opts.SearchRate = 10
	}
	if opts.SearchBurst <= 0 {
		opts.SearchBurst = 5
	}
	return &Router{
		patterns: patterns,
		images:   images,
		registry: registry,
		newView:  newView,
		throttle: service.NewTokenBucket[domain.ViewKey](opts.SearchRate, opts.SearchBurst),
	}
}

// Close stops the router's background work.
func (r *Router) Close() {
	r.throttle.Stop()
}

// Vocabulary returns the garment labels seen at the last list refresh.
func (r *Router) Vocabulary() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.vocabulary...)
}

// Dispatch executes cmd. A failure is logged, reported to the view the
// command came from and returned.
func (r *Router) Dispatch(ctx context.Context, cmd Command) error {
	var err error
	switch c := cmd.(type) {
	case RefreshList:
		err = r.refreshList(ctx, c)
	case OpenAddNew:
		err = r.openAddNew(ctx, c)
	case OpenDetail:
		err = r.openDetail(ctx, c)
	case SaveDetail:
		err = r.saveDetail(ctx, c)
	case DeletePattern:
		err = r.deletePattern(ctx, c)
	case CreatePattern:
		err = r.createPattern(ctx, c)
	case PickImages:
		err = r.pickImages(ctx, c)
	case ViewImage:
		err = r.viewImage(ctx, c)
	case DeleteImage:
		err = r.deleteImage(ctx, c)
	case AttachView:
		// Reports to the attaching view itself; the registry entry for
		// its key may belong to another window.
		return r.attach(ctx, c)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	if err == nil || errors.Is(err, ErrThrottled) {
		return err
	}
	slog.Error("command failed", "command", cmd.Name(), "origin", cmd.From().String(), "error", err)
	r.notify(cmd.From(), err)
	return err
}

func (r *Router) refreshList(ctx context.Context, c RefreshList) error {
	if !r.throttle.Allow(c.Origin) {
		return ErrThrottled
	}
	return r.pushList(ctx, c.Search)
}

func (r *Router) openAddNew(ctx context.Context, c OpenAddNew) error {
	key := domain.AddNewKey()
	v, created, err := r.open(key)
	if err != nil {
		return err
	}
	if created {
		v.Push(session.DetailUpdate{Pattern: &domain.Pattern{}, Garments: r.Vocabulary()})
		r.launch(c.Origin, key)
	}
	return nil
}

func (r *Router) openDetail(ctx context.Context, c OpenDetail) error {
	key := domain.PatternDetailKey(c.PatternID)
	v, created, err := r.open(key)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	p, err := r.patterns.GetByID(ctx, c.PatternID)
	if err != nil {
		r.registry.CloseAndForget(key)
		return err
	}
	v.Push(session.DetailUpdate{Pattern: p, Garments: r.Vocabulary()})
	r.launch(c.Origin, key)
	return nil
}

func (r *Router) saveDetail(ctx context.Context, c SaveDetail) error {
	p := c.Pattern
	if p.ID == "" {
		return fmt.Errorf("%w: pattern id is required", domain.ErrInvalidInput)
	}
	// Image views are matched against the edited images before new ones
	// are numbered, since a new image may reuse a removed ID.
	kept := c.Pattern
	if err := r.patterns.Update(ctx, &p, c.NewImages); err != nil {
		return err
	}

	r.registry.CloseAndForget(domain.PatternDetailKey(p.ID))
	r.closeImageViews(p.ID, func(localID int) bool {
		_, err := kept.Image(localID)
		return err != nil
	})
	r.focus(domain.MainListKey())
	return r.pushList(ctx, "")
}

func (r *Router) deletePattern(ctx context.Context, c DeletePattern) error {
	if err := r.patterns.Delete(ctx, c.PatternID); err != nil {
		return err
	}

	r.registry.CloseAndForget(domain.PatternDetailKey(c.PatternID))
	r.closeImageViews(c.PatternID, func(int) bool { return true })
	r.focus(domain.MainListKey())
	return r.pushList(ctx, "")
}

func (r *Router) createPattern(ctx context.Context, c CreatePattern) error {
	p := c.Pattern
	p.ID = ""
	if err := r.patterns.Create(ctx, &p, c.NewImages); err != nil {
		return err
	}

	r.registry.CloseAndForget(domain.AddNewKey())
	r.focus(domain.MainListKey())
	return r.pushList(ctx, "")
}

func (r *Router) pickImages(ctx context.Context, c PickImages) error {
	if c.Picker == nil {
		return fmt.Errorf("%w: no file picker", domain.ErrInvalidInput)
	}
	files, err := c.Picker.PickFiles(ctx, c.Multi)
	if err != nil {
		return fmt.Errorf("pick files: %w", err)
	}
	if len(files) == 0 {
		return nil
	}
	if !c.Multi && len(files) > 1 {
		return fmt.Errorf("%w: pick a single image", domain.ErrInvalidInput)
	}

	images, err := r.images.Accept(files)
	if err != nil {
		return err
	}

	target, err := r.registry.Get(c.Target)
	if err != nil {
		return err
	}
	target.Push(session.PickedUpdate{Slot: c.Slot, Images: images})
	return nil
}

func (r *Router) viewImage(ctx context.Context, c ViewImage) error {
	key := domain.ImageDetailKey(c.PatternID, c.LocalID)
	v, created, err := r.open(key)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	update, err := r.loadImage(ctx, c.PatternID, c.LocalID)
	if err != nil {
		r.registry.CloseAndForget(key)
		return err
	}
	v.Push(update)
	r.launch(c.Origin, key)
	return nil
}

func (r *Router) deleteImage(ctx context.Context, c DeleteImage) error {
	p, err := r.patterns.RemoveImage(ctx, c.PatternID, c.LocalID)
	if err != nil {
		return err
	}

	r.registry.CloseAndForget(domain.ImageDetailKey(c.PatternID, c.LocalID))
	if detail, err := r.registry.Get(domain.PatternDetailKey(c.PatternID)); err == nil {
		detail.Push(session.DetailUpdate{Pattern: p, Garments: r.Vocabulary()})
		detail.Focus()
	}
	return nil
}

func (r *Router) attach(ctx context.Context, c AttachView) error {
	v := c.View
	key := v.Key()

	_, created, err := r.registry.OpenOrFocus(key, func() (session.View, error) { return v, nil })
	if err != nil {
		return err
	}
	if !created {
		v.Push(session.NoticeUpdate{Message: "This view is already open in another window.", Error: true})
		return fmt.Errorf("%s: %w", key, ErrAlreadyOpen)
	}
	r.throttle.Forget(key)

	if err := r.load(ctx, v); err != nil {
		slog.Error("load view", "key", key.String(), "error", err)
		v.Push(session.NoticeUpdate{Message: noticeMessage(err), Error: true})
		r.registry.CloseAndForget(key)
		return err
	}
	return nil
}

// load pushes the initial content for a freshly attached view.
func (r *Router) load(ctx context.Context, v session.View) error {
	key := v.Key()
	switch key.Kind {
	case domain.ViewMainList:
		return r.pushList(ctx, "")
	case domain.ViewAddNew:
		v.Push(session.DetailUpdate{Pattern: &domain.Pattern{}, Garments: r.Vocabulary()})
		return nil
	case domain.ViewPatternDetail:
		p, err := r.patterns.GetByID(ctx, key.PatternID)
		if err != nil {
			return err
		}
		v.Push(session.DetailUpdate{Pattern: p, Garments: r.Vocabulary()})
		return nil
	case domain.ViewImageDetail:
		update, err := r.loadImage(ctx, key.PatternID, key.ImageID)
		if err != nil {
			return err
		}
		v.Push(update)
		return nil
	}
	return fmt.Errorf("%w: view kind %d", domain.ErrInvalidInput, key.Kind)
}

func (r *Router) loadImage(ctx context.Context, patternID string, localID int) (session.ImageUpdate, error) {
	p, img, err := r.patterns.Image(ctx, patternID, localID)
	if err != nil {
		return session.ImageUpdate{}, err
	}
	return session.ImageUpdate{PatternID: p.ID, PatternName: p.Name, Image: img}, nil
}

// pushList queries the store, sends the result to the main list when it is
// open and recomputes the garment vocabulary.
func (r *Router) pushList(ctx context.Context, search string) error {
	patterns, err := r.patterns.Search(ctx, search)
	if err != nil {
		return err
	}
	vocabulary := r.refreshVocabulary(ctx)

	if v, err := r.registry.Get(domain.MainListKey()); err == nil {
		v.Push(session.ListUpdate{Patterns: patterns, Search: search, Garments: vocabulary})
	}
	return nil
}

func (r *Router) refreshVocabulary(ctx context.Context) []string {
	labels, err := r.patterns.Garments(ctx)
	if err != nil {
		// The vocabulary only feeds suggestions; keep the previous one.
		slog.Warn("refresh garment vocabulary", "error", err)
		return r.Vocabulary()
	}

	r.mu.Lock()
	r.vocabulary = labels
	r.mu.Unlock()
	return append([]string(nil), labels...)
}

func (r *Router) open(key domain.ViewKey) (session.View, bool, error) {
	return r.registry.OpenOrFocus(key, func() (session.View, error) {
		return r.newView(key), nil
	})
}

// launch asks the origin view to open the window for key.
func (r *Router) launch(origin, key domain.ViewKey) {
	v, err := r.registry.Get(origin)
	if err != nil {
		slog.Debug("launch without origin view", "origin", origin.String(), "key", key.String())
		return
	}
	v.Push(session.LaunchUpdate{Key: key})
}

func (r *Router) focus(key domain.ViewKey) {
	if v, err := r.registry.Get(key); err == nil {
		v.Focus()
	}
}

// closeImageViews closes the open image views of a pattern whose local ID
// matches.
func (r *Router) closeImageViews(patternID string, match func(localID int) bool) {
	for _, key := range r.registry.Keys() {
		if key.Kind == domain.ViewImageDetail && key.PatternID == patternID && match(key.ImageID) {
			r.registry.CloseAndForget(key)
		}
	}
}

func (r *Router) notify(origin domain.ViewKey, err error) {
	v, gerr := r.registry.Get(origin)
	if gerr != nil {
		return
	}
	v.Push(session.NoticeUpdate{Message: noticeMessage(err), Error: true})
}

// noticeMessage turns an error into text fit for the user.
func noticeMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return "That pattern or image no longer exists."
	case errors.Is(err, domain.ErrStorage):
		return "The pattern store could not complete the request. Your changes were not saved."
	default:
		return "Something went wrong."
	}
}
