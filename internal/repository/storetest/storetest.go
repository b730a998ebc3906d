// Package storetest holds the behaviour every domain.Database backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/msomdec/sewing-vault/internal/domain"
)

// Factory returns a migrated, empty database. It should register its own
// cleanup with t.Cleanup.
type Factory func(t *testing.T) domain.Database

// Run executes the conformance suite against the backend built by newDB.
func Run(t *testing.T, newDB Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, db domain.Database)
	}{
		{"CreateThenGet", testCreateThenGet},
		{"GetByID_NotFound", testGetNotFound},
		{"List_Order", testListOrder},
		{"List_Empty", testListEmpty},
		{"FindByName", testFindByName},
		{"FindByName_Wildcards", testFindByNameWildcards},
		{"Update", testUpdate},
		{"Update_NotFound", testUpdateNotFound},
		{"Delete", testDelete},
		{"Delete_NotFound", testDeleteNotFound},
		{"RemoveImage", testRemoveImage},
		{"RemoveImage_NotFound", testRemoveImageNotFound},
		{"GarmentVocabulary", testGarmentVocabulary},
		{"GarmentPrune", testGarmentPrune},
		{"FileStore", testFileStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newDB(t))
		})
	}
}

func makePattern(name string, garments ...string) *domain.Pattern {
	p := &domain.Pattern{
		Name:     name,
		Cover:    []byte{0xff, 0xd8, 0xff, 0x01},
		Company:  "Vogue",
		Year:     "1978",
		Notes:    "size 12, lengthen hem",
		Garments: garments,
	}
	p.AppendImages([]byte("front"), []byte("back"), []byte("detail"))
	return p
}

func create(t *testing.T, db domain.Database, p *domain.Pattern) {
	t.Helper()
	if err := db.Patterns().Create(context.Background(), p); err != nil {
		t.Fatalf("Create %q: %v", p.Name, err)
	}
	if p.ID == "" {
		t.Fatalf("expected ID to be assigned for %q", p.Name)
	}
}

func ids(patterns []domain.Pattern) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.ID
	}
	return out
}

func imageIDs(p *domain.Pattern) []int {
	out := make([]int, len(p.AdditionalImages))
	for i, img := range p.AdditionalImages {
		out[i] = img.LocalID
	}
	return out
}

func testCreateThenGet(t *testing.T, db domain.Database) {
	ctx := context.Background()
	p := makePattern("Vogue 1234", "dress", "coat")
	create(t, db, p)

	got, err := db.Patterns().GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if got.ID != p.ID {
		t.Fatalf("expected ID %s, got %s", p.ID, got.ID)
	}
	if got.Name != "Vogue 1234" || got.Company != "Vogue" || got.Year != "1978" || got.Notes != p.Notes {
		t.Fatalf("metadata mismatch: %+v", got)
	}
	if !bytes.Equal(got.Cover, p.Cover) {
		t.Fatalf("cover mismatch: got %x", got.Cover)
	}
	if !slices.Equal(got.Garments, []string{"coat", "dress"}) {
		t.Fatalf("expected garments [coat dress], got %v", got.Garments)
	}
	if !slices.Equal(imageIDs(got), []int{0, 1, 2}) {
		t.Fatalf("expected image IDs [0 1 2], got %v", imageIDs(got))
	}
	if string(got.AdditionalImages[1].Image) != "back" {
		t.Fatalf("expected image 1 to be 'back', got %q", got.AdditionalImages[1].Image)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func testGetNotFound(t *testing.T, db domain.Database) {
	_, err := db.Patterns().GetByID(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testListOrder(t *testing.T, db domain.Database) {
	var want []string
	for _, name := range []string{"First", "Second", "Third"} {
		p := makePattern(name)
		create(t, db, p)
		want = append(want, p.ID)
	}

	all, err := db.Patterns().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Equal(ids(all), want) {
		t.Fatalf("expected creation order %v, got %v", want, ids(all))
	}
}

func testListEmpty(t *testing.T, db domain.Database) {
	all, err := db.Patterns().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no patterns, got %d", len(all))
	}
}

func testFindByName(t *testing.T, db domain.Database) {
	ctx := context.Background()
	vogue := makePattern("Vogue 1234", "dress")
	create(t, db, vogue)
	create(t, db, makePattern("Simplicity 8000"))
	create(t, db, makePattern("McCall's Coat"))

	found, err := db.Patterns().FindByName(ctx, "vogue")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if !slices.Equal(ids(found), []string{vogue.ID}) {
		t.Fatalf("expected only %s, got %v", vogue.ID, ids(found))
	}

	all, err := db.Patterns().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	everything, err := db.Patterns().FindByName(ctx, "")
	if err != nil {
		t.Fatalf("FindByName empty: %v", err)
	}
	if !slices.Equal(ids(everything), ids(all)) {
		t.Fatalf("expected empty search to equal List: %v vs %v", ids(everything), ids(all))
	}

	// Every result contains "IM" case-insensitively; everything else does not.
	found, err = db.Patterns().FindByName(ctx, "IM")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Simplicity 8000" {
		t.Fatalf("expected Simplicity 8000, got %v", ids(found))
	}

	etoile := makePattern("Étoile Dress")
	create(t, db, etoile)
	uber := makePattern("ÜBERGRÖSSE Mantel")
	create(t, db, uber)

	for _, search := range []string{"étoile", "ÉTOILE", "Étoile d"} {
		found, err := db.Patterns().FindByName(ctx, search)
		if err != nil {
			t.Fatalf("FindByName(%q): %v", search, err)
		}
		if !slices.Equal(ids(found), []string{etoile.ID}) {
			t.Fatalf("FindByName(%q): expected %s, got %v", search, etoile.ID, ids(found))
		}
	}

	found, err = db.Patterns().FindByName(ctx, "übergrösse")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if !slices.Equal(ids(found), []string{uber.ID}) {
		t.Fatalf("expected %s, got %v", uber.ID, ids(found))
	}
}

func testFindByNameWildcards(t *testing.T, db domain.Database) {
	create(t, db, makePattern("Plain"))
	pct := makePattern("100% linen")
	create(t, db, pct)

	found, err := db.Patterns().FindByName(context.Background(), "%")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if !slices.Equal(ids(found), []string{pct.ID}) {
		t.Fatalf("expected literal %% match only, got %v", ids(found))
	}
}

func testUpdate(t *testing.T, db domain.Database) {
	ctx := context.Background()
	p := makePattern("Before", "dress")
	create(t, db, p)

	p.Name = "After"
	p.Notes = "new notes"
	p.Garments = []string{"dress", "skirt"}
	p.AppendImages([]byte("extra"))
	if err := db.Patterns().Update(ctx, p); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := db.Patterns().GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "After" || got.Notes != "new notes" {
		t.Fatalf("update not persisted: %+v", got)
	}
	if !slices.Equal(got.Garments, []string{"dress", "skirt"}) {
		t.Fatalf("expected garments [dress skirt], got %v", got.Garments)
	}
	if !slices.Equal(imageIDs(got), []int{0, 1, 2, 3}) {
		t.Fatalf("expected image IDs [0 1 2 3], got %v", imageIDs(got))
	}

	vocab, err := db.GarmentTypes().List(ctx)
	if err != nil {
		t.Fatalf("List garment types: %v", err)
	}
	if !slices.Contains(domain.GarmentNames(vocab), "skirt") {
		t.Fatalf("expected skirt in vocabulary, got %v", domain.GarmentNames(vocab))
	}
}

func testUpdateNotFound(t *testing.T, db domain.Database) {
	p := makePattern("Ghost")
	p.ID = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	err := db.Patterns().Update(context.Background(), p)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testDelete(t *testing.T, db domain.Database) {
	ctx := context.Background()
	p := makePattern("Doomed", "dress")
	create(t, db, p)

	if err := db.Patterns().Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Patterns().GetByID(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func testDeleteNotFound(t *testing.T, db domain.Database) {
	err := db.Patterns().Delete(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testRemoveImage(t *testing.T, db domain.Database) {
	ctx := context.Background()
	p := makePattern("With images")
	create(t, db, p)

	updated, err := db.Patterns().RemoveImage(ctx, p.ID, 1)
	if err != nil {
		t.Fatalf("RemoveImage: %v", err)
	}
	if !slices.Equal(imageIDs(updated), []int{0, 2}) {
		t.Fatalf("expected returned image IDs [0 2], got %v", imageIDs(updated))
	}

	got, err := db.Patterns().GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !slices.Equal(imageIDs(got), []int{0, 2}) {
		t.Fatalf("expected stored image IDs [0 2], got %v", imageIDs(got))
	}
	if string(got.AdditionalImages[0].Image) != "front" || string(got.AdditionalImages[1].Image) != "detail" {
		t.Fatalf("unexpected remaining images: %q %q", got.AdditionalImages[0].Image, got.AdditionalImages[1].Image)
	}
}

func testRemoveImageNotFound(t *testing.T, db domain.Database) {
	ctx := context.Background()
	p := makePattern("With images")
	create(t, db, p)

	if _, err := db.Patterns().RemoveImage(ctx, p.ID, 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing image, got %v", err)
	}
	if _, err := db.Patterns().RemoveImage(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing pattern, got %v", err)
	}

	got, err := db.Patterns().GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.AdditionalImages) != 3 {
		t.Fatalf("failed removal must not change images, got %d", len(got.AdditionalImages))
	}
}

func testGarmentVocabulary(t *testing.T, db domain.Database) {
	ctx := context.Background()
	create(t, db, makePattern("One", "dress", "coat"))
	create(t, db, makePattern("Two", "coat", "dress", "dress"))

	vocab, err := db.GarmentTypes().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Equal(domain.GarmentNames(vocab), []string{"coat", "dress"}) {
		t.Fatalf("expected vocabulary [coat dress], got %v", domain.GarmentNames(vocab))
	}
}

func testGarmentPrune(t *testing.T, db domain.Database) {
	ctx := context.Background()
	keep := makePattern("Keep", "coat")
	create(t, db, keep)
	drop := makePattern("Drop", "coat", "cape")
	create(t, db, drop)

	if err := db.Patterns().Delete(ctx, drop.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Delete alone leaves the orphan in place.
	vocab, err := db.GarmentTypes().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Equal(domain.GarmentNames(vocab), []string{"cape", "coat"}) {
		t.Fatalf("expected [cape coat] before prune, got %v", domain.GarmentNames(vocab))
	}

	removed, err := db.GarmentTypes().Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if !slices.Equal(removed, []string{"cape"}) {
		t.Fatalf("expected [cape] removed, got %v", removed)
	}

	vocab, err = db.GarmentTypes().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Equal(domain.GarmentNames(vocab), []string{"coat"}) {
		t.Fatalf("expected [coat] after prune, got %v", domain.GarmentNames(vocab))
	}
}

func testFileStore(t *testing.T, db domain.Database) {
	ctx := context.Background()
	fs := db.FileStore()

	if _, err := fs.Get(ctx, "thumbs/missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := fs.Save(ctx, "thumbs/a", []byte("one")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := fs.Save(ctx, "thumbs/a", []byte("two")); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	data, err := fs.Get(ctx, "thumbs/a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "two" {
		t.Fatalf("expected overwritten blob, got %q", data)
	}
	if err := fs.Delete(ctx, "thumbs/a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := fs.Get(ctx, "thumbs/a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
