package domain

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Pattern is one sewing pattern in the vault.
type Pattern struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Cover            []byte            `json:"cover,omitempty"`
	AdditionalImages []AdditionalImage `json:"additionalImages,omitempty"`
	Company          string            `json:"company,omitempty"`
	Year             string            `json:"year,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	Garments         []string          `json:"garments,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// AdditionalImage is an extra picture attached to a pattern. LocalID is
// unique within the owning pattern only.
type AdditionalImage struct {
	LocalID int    `json:"localId"`
	Image   []byte `json:"image"`
}

// NextImageID returns the local ID the next appended image receives.
func (p *Pattern) NextImageID() int {
	next := 0
	for _, img := range p.AdditionalImages {
		if img.LocalID >= next {
			next = img.LocalID + 1
		}
	}
	return next
}

// AppendImages adds images to the end of the sequence with fresh local IDs.
func (p *Pattern) AppendImages(images ...[]byte) {
	next := p.NextImageID()
	p.AdditionalImages = slices.Clip(p.AdditionalImages)
	for _, data := range images {
		p.AdditionalImages = append(p.AdditionalImages, AdditionalImage{LocalID: next, Image: data})
		next++
	}
}

// Image returns the additional image with the given local ID.
func (p *Pattern) Image(localID int) (AdditionalImage, error) {
	i := p.imageIndex(localID)
	if i < 0 {
		return AdditionalImage{}, fmt.Errorf("%w: image %d of pattern %s", ErrNotFound, localID, p.ID)
	}
	return p.AdditionalImages[i], nil
}

// RemoveImage removes exactly one image by local ID.
func (p *Pattern) RemoveImage(localID int) error {
	i := p.imageIndex(localID)
	if i < 0 {
		return fmt.Errorf("%w: image %d of pattern %s", ErrNotFound, localID, p.ID)
	}
	p.AdditionalImages = slices.Delete(p.AdditionalImages, i, i+1)
	return nil
}

func (p *Pattern) imageIndex(localID int) int {
	return slices.IndexFunc(p.AdditionalImages, func(img AdditionalImage) bool {
		return img.LocalID == localID
	})
}

// PatternRepository is the Record Store for patterns. Writes that carry
// garment labels create any missing GarmentType in the same transaction as
// the pattern write, so readers never see a pattern referencing a label
// absent from the vocabulary.
type PatternRepository interface {
	// List returns every pattern in store order (creation order).
	List(ctx context.Context) ([]Pattern, error)
	// FindByName returns patterns whose name contains name, ignoring case.
	// An empty name behaves like List.
	FindByName(ctx context.Context, name string) ([]Pattern, error)
	GetByID(ctx context.Context, id string) (*Pattern, error)
	// Create assigns pattern.ID and persists the record.
	Create(ctx context.Context, pattern *Pattern) error
	// Update replaces the stored record with the same ID.
	Update(ctx context.Context, pattern *Pattern) error
	Delete(ctx context.Context, id string) error
	// RemoveImage deletes one additional image and returns the updated pattern.
	RemoveImage(ctx context.Context, patternID string, localID int) (*Pattern, error)
}
