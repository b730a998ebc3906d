package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/repository/docstore"
	"github.com/msomdec/sewing-vault/internal/repository/sqlite"
	"github.com/msomdec/sewing-vault/internal/service"
)

func newTestSQLite(t *testing.T) domain.Database {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestDocstore(t *testing.T) domain.Database {
	t.Helper()
	db, err := docstore.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testPNG encodes a w×h solid PNG.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPatternService_CreateKeepsNameAndNormalizesGarments(t *testing.T) {
	db := newTestSQLite(t)
	svc := service.NewPatternService(db.Patterns(), db.GarmentTypes(), db.FileStore(), true)
	ctx := context.Background()

	p := &domain.Pattern{Name: "  Wrap Dress ", Garments: []string{" dress", "dress", ""}}
	if err := svc.Create(ctx, p, [][]byte{[]byte("a"), []byte("b")}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "  Wrap Dress " {
		t.Fatalf("expected the name as entered, got %q", got.Name)
	}
	if len(got.Garments) != 1 || got.Garments[0] != "dress" {
		t.Fatalf("expected [dress], got %v", got.Garments)
	}
	if len(got.AdditionalImages) != 2 || got.AdditionalImages[0].LocalID != 0 || got.AdditionalImages[1].LocalID != 1 {
		t.Fatalf("unexpected images: %+v", got.AdditionalImages)
	}
}

func TestPatternService_UpdateAppendsAfterMaxID(t *testing.T) {
	db := newTestDocstore(t)
	svc := service.NewPatternService(db.Patterns(), db.GarmentTypes(), db.FileStore(), true)
	ctx := context.Background()

	p := &domain.Pattern{Name: "Coat"}
	if err := svc.Create(ctx, p, [][]byte{[]byte("a"), []byte("b"), []byte("c")}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.RemoveImage(ctx, p.ID, 1); err != nil {
		t.Fatalf("RemoveImage: %v", err)
	}

	got, _ := svc.GetByID(ctx, p.ID)
	if err := svc.Update(ctx, got, [][]byte{[]byte("d")}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ = svc.GetByID(ctx, p.ID)
	var ids []int
	for _, img := range got.AdditionalImages {
		ids = append(ids, img.LocalID)
	}
	if len(ids) != 3 || ids[0] != 0 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("expected ids [0 2 3], got %v", ids)
	}
}

func TestPatternService_UpdateRejectsDuplicateImageIDs(t *testing.T) {
	db := newTestDocstore(t)
	svc := service.NewPatternService(db.Patterns(), db.GarmentTypes(), db.FileStore(), true)
	ctx := context.Background()

	p := &domain.Pattern{Name: "Skirt"}
	if err := svc.Create(ctx, p, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	p.AdditionalImages = []domain.AdditionalImage{{LocalID: 4, Image: []byte("x")}, {LocalID: 4, Image: []byte("y")}}
	err := svc.Update(ctx, p, nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPatternService_DeletePrunesGarments(t *testing.T) {
	for _, prune := range []bool{true, false} {
		db := newTestSQLite(t)
		svc := service.NewPatternService(db.Patterns(), db.GarmentTypes(), db.FileStore(), prune)
		ctx := context.Background()

		keep := &domain.Pattern{Name: "Keep", Garments: []string{"top"}}
		gone := &domain.Pattern{Name: "Gone", Garments: []string{"top", "cape"}}
		for _, p := range []*domain.Pattern{keep, gone} {
			if err := svc.Create(ctx, p, nil); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}

		if err := svc.Delete(ctx, gone.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		labels, err := svc.Garments(ctx)
		if err != nil {
			t.Fatalf("Garments: %v", err)
		}
		want := 1
		if !prune {
			want = 2
		}
		if len(labels) != want {
			t.Fatalf("prune=%v: expected %d labels, got %v", prune, want, labels)
		}
	}
}

func TestPatternService_DeleteNotFound(t *testing.T) {
	db := newTestDocstore(t)
	svc := service.NewPatternService(db.Patterns(), db.GarmentTypes(), db.FileStore(), true)

	err := svc.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPatternService_Search(t *testing.T) {
	db := newTestSQLite(t)
	svc := service.NewPatternService(db.Patterns(), db.GarmentTypes(), db.FileStore(), true)
	ctx := context.Background()

	for _, name := range []string{"Summer Dress", "Winter Coat", "dressing gown"} {
		if err := svc.Create(ctx, &domain.Pattern{Name: name}, nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := svc.Search(ctx, "  DRESS ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}

	all, err := svc.Search(ctx, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 patterns, got %d", len(all))
	}
}

func TestPatternService_Image(t *testing.T) {
	db := newTestDocstore(t)
	svc := service.NewPatternService(db.Patterns(), db.GarmentTypes(), db.FileStore(), true)
	ctx := context.Background()

	p := &domain.Pattern{Name: "Vest"}
	if err := svc.Create(ctx, p, [][]byte{[]byte("front")}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, img, err := svc.Image(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if string(img.Image) != "front" {
		t.Fatalf("unexpected image %q", img.Image)
	}

	if _, _, err := svc.Image(ctx, p.ID, 7); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImageService_Accept(t *testing.T) {
	db := newTestDocstore(t)
	svc := service.NewImageService(db.FileStore(), db.Patterns())

	pngData := testPNG(t, 4, 4)
	got, err := svc.Accept([]service.ImageFile{{Name: "a.png", Data: pngData}})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0], pngData) {
		t.Fatal("expected the picked bytes back")
	}

	tests := []struct {
		name  string
		files []service.ImageFile
	}{
		{"empty", []service.ImageFile{{Name: "e.png"}}},
		{"text", []service.ImageFile{{Name: "notes.png", Data: []byte("hello world")}}},
		{"too large", []service.ImageFile{{Name: "big.png", Data: append(pngData, make([]byte, 10*1024*1024)...)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Accept(tt.files); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestImageService_CoverThumbnailCached(t *testing.T) {
	db := newTestSQLite(t)
	svc := service.NewImageService(db.FileStore(), db.Patterns())
	ctx := context.Background()

	p := &domain.Pattern{Name: "Jacket", Cover: testPNG(t, 900, 600)}
	if err := db.Patterns().Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := svc.CoverThumbnail(ctx, p.ID)
	if err != nil {
		t.Fatalf("CoverThumbnail: %v", err)
	}
	img, format, err := image.Decode(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg thumbnail, got %s", format)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 200 {
		t.Fatalf("expected 300x200, got %dx%d", b.Dx(), b.Dy())
	}

	second, err := svc.CoverThumbnail(ctx, p.ID)
	if err != nil {
		t.Fatalf("CoverThumbnail (cached): %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected cached thumbnail on second call")
	}
}

// cachedThumbnail renders p's cover thumbnail and confirms it is cached.
func cachedThumbnail(t *testing.T, db domain.Database, p *domain.Pattern) string {
	t.Helper()
	ctx := context.Background()
	if _, err := service.NewImageService(db.FileStore(), db.Patterns()).CoverThumbnail(ctx, p.ID); err != nil {
		t.Fatalf("CoverThumbnail: %v", err)
	}
	key := service.ThumbKey(p.Cover)
	if _, err := db.FileStore().Get(ctx, key); err != nil {
		t.Fatalf("expected cached thumbnail: %v", err)
	}
	return key
}

func TestPatternService_DeleteDropsCachedThumbnail(t *testing.T) {
	for name, newDB := range map[string]func(*testing.T) domain.Database{"sqlite": newTestSQLite, "docstore": newTestDocstore} {
		t.Run(name, func(t *testing.T) {
			db := newDB(t)
			svc := service.NewPatternService(db.Patterns(), db.GarmentTypes(), db.FileStore(), true)
			ctx := context.Background()

			p := &domain.Pattern{Name: "Cape", Cover: testPNG(t, 400, 400)}
			if err := svc.Create(ctx, p, nil); err != nil {
				t.Fatalf("Create: %v", err)
			}
			key := cachedThumbnail(t, db, p)

			if err := svc.Delete(ctx, p.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := db.FileStore().Get(ctx, key); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected thumbnail removed, got %v", err)
			}
		})
	}
}

func TestPatternService_UpdateDropsReplacedCoverThumbnail(t *testing.T) {
	db := newTestSQLite(t)
	svc := service.NewPatternService(db.Patterns(), db.GarmentTypes(), db.FileStore(), true)
	ctx := context.Background()

	p := &domain.Pattern{Name: "Blouse", Cover: testPNG(t, 400, 400)}
	if err := svc.Create(ctx, p, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	key := cachedThumbnail(t, db, p)

	// A save that keeps the cover keeps its thumbnail.
	p.Notes = "lined"
	if err := svc.Update(ctx, p, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := db.FileStore().Get(ctx, key); err != nil {
		t.Fatalf("expected thumbnail kept, got %v", err)
	}

	p.Cover = testPNG(t, 500, 300)
	if err := svc.Update(ctx, p, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := db.FileStore().Get(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected old thumbnail removed, got %v", err)
	}
}

func TestPatternService_ConcurrentWritesKeepVocabulary(t *testing.T) {
	db := newTestDocstore(t)
	svc := service.NewPatternService(db.Patterns(), db.GarmentTypes(), db.FileStore(), true)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				p := &domain.Pattern{Name: "Cape", Garments: []string{"cape"}}
				if err := svc.Create(ctx, p, nil); err != nil {
					errs <- err
					return
				}
				if j%2 == 0 {
					if err := svc.Delete(ctx, p.ID); err != nil {
						errs <- err
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("write failed: %v", err)
	}

	labels, err := svc.Garments(ctx)
	if err != nil {
		t.Fatalf("Garments: %v", err)
	}
	patterns, err := svc.Search(ctx, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(patterns) != 20 {
		t.Fatalf("expected 20 patterns, got %d", len(patterns))
	}
	for _, p := range patterns {
		for _, g := range p.Garments {
			if !slices.Contains(labels, g) {
				t.Fatalf("pattern %s references %q missing from vocabulary %v", p.ID, g, labels)
			}
		}
	}
}

func TestImageService_CoverThumbnailNoCover(t *testing.T) {
	db := newTestDocstore(t)
	svc := service.NewImageService(db.FileStore(), db.Patterns())
	ctx := context.Background()

	p := &domain.Pattern{Name: "Bare"}
	if err := db.Patterns().Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.CoverThumbnail(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestViewTokenService_RoundTrip(t *testing.T) {
	svc := service.NewViewTokenService("test-secret-key-for-unit-tests")

	keys := []domain.ViewKey{
		domain.MainListKey(),
		domain.AddNewKey(),
		domain.PatternDetailKey("01HXYZ"),
		domain.ImageDetailKey("01HXYZ", 3),
	}
	for _, key := range keys {
		token, err := svc.Issue(key)
		if err != nil {
			t.Fatalf("Issue(%s): %v", key, err)
		}
		got, err := svc.Parse(token)
		if err != nil {
			t.Fatalf("Parse(%s): %v", key, err)
		}
		if got != key {
			t.Fatalf("expected %v, got %v", key, got)
		}
	}
}

func TestViewTokenService_RejectsForeignSecret(t *testing.T) {
	issuer := service.NewViewTokenService("secret-a")
	verifier := service.NewViewTokenService("secret-b")

	token, err := issuer.Issue(domain.MainListKey())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Parse(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := verifier.Parse("not-a-token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
