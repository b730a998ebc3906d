package domain

import (
	"context"
	"slices"
	"strings"
)

// GarmentType is one label of the global garment vocabulary shared by all
// patterns ("dress", "coat", ...).
type GarmentType struct {
	Name string `json:"name"`
}

// GarmentTypeRepository exposes the garment vocabulary. Entries are created
// implicitly by pattern writes; see PatternRepository.
type GarmentTypeRepository interface {
	List(ctx context.Context) ([]GarmentType, error)
	// Prune deletes garment types that no pattern references and returns
	// the removed labels.
	Prune(ctx context.Context) ([]string, error)
}

// NormalizeGarments trims labels, drops empty ones and collapses
// duplicates. The result is sorted.
func NormalizeGarments(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// GarmentNames returns the labels of the given garment types.
func GarmentNames(types []GarmentType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	return names
}
