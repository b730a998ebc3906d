package router

import (
	"context"

	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/service"
	"github.com/msomdec/sewing-vault/internal/session"
)

// Command is a request sent by a view. Every command names the view it
// came from; failures are reported back to that view.
type Command interface {
	Name() string
	From() domain.ViewKey
}

// FilePicker lets the user choose image files. An empty result means the
// pick was cancelled.
type FilePicker interface {
	PickFiles(ctx context.Context, multi bool) ([]service.ImageFile, error)
}

// ViewFactory creates a detached view for a key. The view buffers updates
// until its window connects.
type ViewFactory func(key domain.ViewKey) session.View

// RefreshList re-queries the pattern list, filtered by Search when set.
type RefreshList struct {
	Origin domain.ViewKey
	Search string
}

// OpenAddNew opens or focuses the add-pattern view.
type OpenAddNew struct {
	Origin domain.ViewKey
}

// OpenDetail opens or focuses the detail view of a pattern.
type OpenDetail struct {
	Origin    domain.ViewKey
	PatternID string
}

// SaveDetail replaces a stored pattern with the edited copy. NewImages are
// appended to its additional images.
type SaveDetail struct {
	Origin    domain.ViewKey
	Pattern   domain.Pattern
	NewImages [][]byte
}

// DeletePattern removes a pattern.
type DeletePattern struct {
	Origin    domain.ViewKey
	PatternID string
}

// CreatePattern stores a new pattern.
type CreatePattern struct {
	Origin    domain.ViewKey
	Pattern   domain.Pattern
	NewImages [][]byte
}

// PickImages asks Picker for image files and hands them to the Target
// view under Slot.
type PickImages struct {
	Origin domain.ViewKey
	Target domain.ViewKey
	Slot   string
	Multi  bool
	Picker FilePicker
}

// ViewImage opens or focuses the full-size view of one additional image.
type ViewImage struct {
	Origin    domain.ViewKey
	PatternID string
	LocalID   int
}

// DeleteImage removes one additional image from a pattern.
type DeleteImage struct {
	Origin    domain.ViewKey
	PatternID string
	LocalID   int
}

// AttachView registers a view whose window connected without being opened
// through the router, such as after a reload, and loads its content.
type AttachView struct {
	View session.View
}

func (RefreshList) Name() string   { return "list.refresh" }
func (OpenAddNew) Name() string    { return "addnew.open" }
func (OpenDetail) Name() string    { return "detail.open" }
func (SaveDetail) Name() string    { return "detail.save" }
func (DeletePattern) Name() string { return "detail.delete" }
func (CreatePattern) Name() string { return "pattern.create" }
func (PickImages) Name() string    { return "image.pick" }
func (ViewImage) Name() string     { return "image.view" }
func (DeleteImage) Name() string   { return "image.delete" }
func (AttachView) Name() string    { return "view.attach" }

func (c RefreshList) From() domain.ViewKey   { return c.Origin }
func (c OpenAddNew) From() domain.ViewKey    { return c.Origin }
func (c OpenDetail) From() domain.ViewKey    { return c.Origin }
func (c SaveDetail) From() domain.ViewKey    { return c.Origin }
func (c DeletePattern) From() domain.ViewKey { return c.Origin }
func (c CreatePattern) From() domain.ViewKey { return c.Origin }
func (c PickImages) From() domain.ViewKey    { return c.Origin }
func (c ViewImage) From() domain.ViewKey     { return c.Origin }
func (c DeleteImage) From() domain.ViewKey   { return c.Origin }
func (c AttachView) From() domain.ViewKey    { return c.View.Key() }
