package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ViewKind enumerates the kinds of views the application can open.
type ViewKind int

const (
	ViewMainList ViewKind = iota
	ViewAddNew
	ViewPatternDetail
	ViewImageDetail
)

// ViewKey identifies one logical view. It is comparable and used directly
// as a map key; construct it with the helpers below.
type ViewKey struct {
	Kind      ViewKind
	PatternID string
	ImageID   int
}

func MainListKey() ViewKey { return ViewKey{Kind: ViewMainList} }

func AddNewKey() ViewKey { return ViewKey{Kind: ViewAddNew} }

func PatternDetailKey(patternID string) ViewKey {
	return ViewKey{Kind: ViewPatternDetail, PatternID: patternID}
}

func ImageDetailKey(patternID string, localID int) ViewKey {
	return ViewKey{Kind: ViewImageDetail, PatternID: patternID, ImageID: localID}
}

// String encodes the key for transport ("main", "new", "pattern:ID",
// "image:ID:N"). ParseViewKey is its inverse.
func (k ViewKey) String() string {
	switch k.Kind {
	case ViewMainList:
		return "main"
	case ViewAddNew:
		return "new"
	case ViewPatternDetail:
		return "pattern:" + k.PatternID
	case ViewImageDetail:
		return "image:" + k.PatternID + ":" + strconv.Itoa(k.ImageID)
	default:
		return fmt.Sprintf("unknown(%d)", int(k.Kind))
	}
}

// ParseViewKey decodes a key produced by ViewKey.String.
func ParseViewKey(s string) (ViewKey, error) {
	switch s {
	case "main":
		return MainListKey(), nil
	case "new":
		return AddNewKey(), nil
	}

	kind, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return ViewKey{}, fmt.Errorf("%w: view key %q", ErrInvalidInput, s)
	}

	switch kind {
	case "pattern":
		return PatternDetailKey(rest), nil
	case "image":
		id, local, ok := strings.Cut(rest, ":")
		if !ok || id == "" {
			return ViewKey{}, fmt.Errorf("%w: view key %q", ErrInvalidInput, s)
		}
		n, err := strconv.Atoi(local)
		if err != nil || n < 0 {
			return ViewKey{}, fmt.Errorf("%w: view key %q", ErrInvalidInput, s)
		}
		return ImageDetailKey(id, n), nil
	}
	return ViewKey{}, fmt.Errorf("%w: view key %q", ErrInvalidInput, s)
}
