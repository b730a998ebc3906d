package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/msomdec/sewing-vault/internal/domain"
)

// PatternService wraps the pattern store with normalization, image ID
// assignment and upkeep of the garment vocabulary and thumbnail cache.
type PatternService struct {
	patterns domain.PatternRepository
	garments domain.GarmentTypeRepository
	files    domain.FileStore
	prune    bool

	// writeMu serializes pattern writes with garment pruning, so a prune
	// never removes a label a concurrent write is about to reference.
	writeMu sync.Mutex
}

// NewPatternService creates a new PatternService. With prune set, garment
// types left without any pattern are removed after deletes and saves.
func NewPatternService(patterns domain.PatternRepository, garments domain.GarmentTypeRepository, files domain.FileStore, prune bool) *PatternService {
	return &PatternService{patterns: patterns, garments: garments, files: files, prune: prune}
}

// Search returns patterns whose name contains search, ignoring case and
// surrounding whitespace. An empty search lists everything.
func (s *PatternService) Search(ctx context.Context, search string) ([]domain.Pattern, error) {
	search = strings.TrimSpace(search)
	if search == "" {
		return s.patterns.List(ctx)
	}
	return s.patterns.FindByName(ctx, search)
}

// GetByID returns a pattern by ID.
func (s *PatternService) GetByID(ctx context.Context, id string) (*domain.Pattern, error) {
	return s.patterns.GetByID(ctx, id)
}

// Image returns one additional image of a pattern along with the pattern.
func (s *PatternService) Image(ctx context.Context, patternID string, localID int) (*domain.Pattern, domain.AdditionalImage, error) {
	p, err := s.patterns.GetByID(ctx, patternID)
	if err != nil {
		return nil, domain.AdditionalImage{}, err
	}
	img, err := p.Image(localID)
	if err != nil {
		return nil, domain.AdditionalImage{}, err
	}
	return p, img, nil
}

// Create stores a new pattern. newImages are appended to its additional
// images with fresh local IDs.
func (s *PatternService) Create(ctx context.Context, pattern *domain.Pattern, newImages [][]byte) error {
	s.prepare(pattern, newImages)
	if err := s.validate(pattern); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.patterns.Create(ctx, pattern); err != nil {
		return fmt.Errorf("create pattern: %w", err)
	}
	slog.Info("pattern created", "id", pattern.ID, "name", pattern.Name)
	return nil
}

// Update replaces a stored pattern. newImages are appended after the
// images the pattern already carries. A replaced cover drops its cached
// thumbnail.
func (s *PatternService) Update(ctx context.Context, pattern *domain.Pattern, newImages [][]byte) error {
	s.prepare(pattern, newImages)
	if err := s.validate(pattern); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored, err := s.patterns.GetByID(ctx, pattern.ID)
	if err != nil {
		return fmt.Errorf("update pattern: %w", err)
	}
	if err := s.patterns.Update(ctx, pattern); err != nil {
		return fmt.Errorf("update pattern: %w", err)
	}
	slog.Info("pattern updated", "id", pattern.ID)

	if !bytes.Equal(stored.Cover, pattern.Cover) {
		s.dropThumbnail(ctx, stored.Cover)
	}
	s.pruneGarments(ctx)
	return nil
}

// Delete removes a pattern along with its cached cover thumbnail.
func (s *PatternService) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored, err := s.patterns.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete pattern: %w", err)
	}
	if err := s.patterns.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete pattern: %w", err)
	}
	slog.Info("pattern deleted", "id", id)

	s.dropThumbnail(ctx, stored.Cover)
	s.pruneGarments(ctx)
	return nil
}

// RemoveImage deletes one additional image and returns the updated pattern.
func (s *PatternService) RemoveImage(ctx context.Context, patternID string, localID int) (*domain.Pattern, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	p, err := s.patterns.RemoveImage(ctx, patternID, localID)
	if err != nil {
		return nil, fmt.Errorf("remove image: %w", err)
	}
	slog.Info("pattern image removed", "id", patternID, "image", localID)
	return p, nil
}

// Garments returns the garment vocabulary labels.
func (s *PatternService) Garments(ctx context.Context) ([]string, error) {
	types, err := s.garments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list garment types: %w", err)
	}
	return domain.GarmentNames(types), nil
}

// prepare leaves the free-text fields as entered; only garment labels are
// normalized.
func (s *PatternService) prepare(pattern *domain.Pattern, newImages [][]byte) {
	pattern.Garments = domain.NormalizeGarments(pattern.Garments)
	if len(newImages) > 0 {
		pattern.AppendImages(newImages...)
	}
}

// validate only guards the image ID invariant; pattern fields are free text.
func (s *PatternService) validate(pattern *domain.Pattern) error {
	seen := make(map[int]bool, len(pattern.AdditionalImages))
	for _, img := range pattern.AdditionalImages {
		if img.LocalID < 0 {
			return fmt.Errorf("%w: negative image id %d", domain.ErrInvalidInput, img.LocalID)
		}
		if seen[img.LocalID] {
			return fmt.Errorf("%w: duplicate image id %d", domain.ErrInvalidInput, img.LocalID)
		}
		if len(img.Image) == 0 {
			return fmt.Errorf("%w: image %d is empty", domain.ErrInvalidInput, img.LocalID)
		}
		seen[img.LocalID] = true
	}
	return nil
}

// pruneGarments runs after a successful write; failing to prune leaves an
// orphan label behind, which is harmless, so it is logged and not returned.
func (s *PatternService) pruneGarments(ctx context.Context) {
	if !s.prune {
		return
	}
	removed, err := s.garments.Prune(ctx)
	if err != nil {
		slog.Warn("prune garment types", "error", err)
		return
	}
	if len(removed) > 0 {
		slog.Info("garment types pruned", "labels", removed)
	}
}

// dropThumbnail removes the cached thumbnail of a cover. Patterns sharing
// the same cover bytes regenerate it on the next request.
func (s *PatternService) dropThumbnail(ctx context.Context, cover []byte) {
	if len(cover) == 0 {
		return
	}
	if err := s.files.Delete(ctx, thumbKey(cover)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("drop cached thumbnail", "error", err)
	}
}
