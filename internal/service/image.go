package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/msomdec/sewing-vault/internal/domain"
	"golang.org/x/crypto/blake2b"
)

const (
	maxImageSize     = 10 * 1024 * 1024 // 10MB
	maxImagesPerPick = 20

	thumbSize    = 300
	thumbQuality = 60
)

// ImageService validates picked image files and maintains the cover
// thumbnail cache.
type ImageService struct {
	files    domain.FileStore
	patterns domain.PatternRepository
}

// NewImageService creates a new ImageService.
func NewImageService(files domain.FileStore, patterns domain.PatternRepository) *ImageService {
	return &ImageService{files: files, patterns: patterns}
}

// ImageFile is one file handed over by a file picker.
type ImageFile struct {
	Name string
	Data []byte
}

// Accept validates picked files and returns their contents. Only JPEG and
// PNG files up to 10MB are accepted.
func (s *ImageService) Accept(files []ImageFile) ([][]byte, error) {
	if len(files) > maxImagesPerPick {
		return nil, fmt.Errorf("%w: at most %d images at once", domain.ErrInvalidInput, maxImagesPerPick)
	}

	images := make([][]byte, 0, len(files))
	for _, f := range files {
		if len(f.Data) == 0 {
			return nil, fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, f.Name)
		}
		if len(f.Data) > maxImageSize {
			return nil, fmt.Errorf("%w: %s exceeds 10MB limit", domain.ErrInvalidInput, f.Name)
		}
		// Sniff the bytes; file names and browser-supplied types lie.
		ct := http.DetectContentType(f.Data)
		if ct != "image/jpeg" && ct != "image/png" {
			return nil, fmt.Errorf("%w: %s is %s, only JPEG and PNG images are accepted", domain.ErrInvalidInput, f.Name, ct)
		}
		images = append(images, f.Data)
	}
	return images, nil
}

// CoverThumbnail returns a small JPEG rendition of a pattern's cover. The
// result is cached in the file store under a hash of the cover bytes, so a
// changed cover gets a new entry.
func (s *ImageService) CoverThumbnail(ctx context.Context, patternID string) ([]byte, error) {
	p, err := s.patterns.GetByID(ctx, patternID)
	if err != nil {
		return nil, err
	}
	if len(p.Cover) == 0 {
		return nil, fmt.Errorf("pattern %s has no cover: %w", patternID, domain.ErrNotFound)
	}

	key := thumbKey(p.Cover)
	data, err := s.files.Get(ctx, key)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}

	data, err = Thumbnail(p.Cover)
	if err != nil {
		return nil, err
	}
	if err := s.files.Save(ctx, key, data); err != nil {
		// Serve the fresh thumbnail anyway; the next request retries the save.
		slog.Warn("cache thumbnail", "pattern", patternID, "error", err)
	}
	return data, nil
}

// Thumbnail decodes an image and re-encodes it as a JPEG that fits in a
// thumbSize square, preserving aspect ratio.
func Thumbnail(src []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %w", domain.ErrInvalidInput, err)
	}

	b := img.Bounds()
	if b.Dx() > thumbSize || b.Dy() > thumbSize {
		img = imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(thumbQuality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func thumbKey(cover []byte) string {
	sum := blake2b.Sum256(cover)
	return "thumbs/" + hex.EncodeToString(sum[:])
}
