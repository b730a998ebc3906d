// Package session tracks the views (windows) open in the application and
// the updates pushed to them.
package session

import "github.com/msomdec/sewing-vault/internal/domain"

// View is a live handle to one open view.
type View interface {
	Key() domain.ViewKey
	// Push delivers an update to the view. Updates pushed before the view
	// is ready are queued; pushing to a closed view is a no-op.
	Push(u Update)
	// Focus brings the view to the foreground.
	Focus()
	// Close closes the view. It is safe to call more than once.
	Close()
	// Done is closed once the view is gone, whether closed by the user or
	// by Close.
	Done() <-chan struct{}
}

// Update is a message pushed from the router to a view.
type Update interface {
	update()
}

// ListUpdate renders the main pattern list.
type ListUpdate struct {
	Patterns []domain.Pattern
	Search   string
	Garments []string
}

// DetailUpdate renders one pattern in its detail view.
type DetailUpdate struct {
	Pattern  *domain.Pattern
	Garments []string
}

// ImageUpdate renders a single additional image full size.
type ImageUpdate struct {
	PatternID   string
	PatternName string
	Image       domain.AdditionalImage
}

// PickedUpdate hands freshly picked image files to the view that asked for
// them. Slot names the form field they belong to ("cover" or "images").
type PickedUpdate struct {
	Slot   string
	Images [][]byte
}

// LaunchUpdate asks a view to open the window for another view key.
type LaunchUpdate struct {
	Key domain.ViewKey
}

// NoticeUpdate shows a user-visible message.
type NoticeUpdate struct {
	Message string
	Error   bool
}

func (ListUpdate) update()   {}
func (DetailUpdate) update() {}
func (ImageUpdate) update()  {}
func (PickedUpdate) update() {}
func (LaunchUpdate) update() {}
func (NoticeUpdate) update() {}
