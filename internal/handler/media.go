package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/msomdec/sewing-vault/internal/domain"
)

// HandleCover serves a pattern's cover image.
// GET /patterns/{id}/cover
func (h *Handler) HandleCover(w http.ResponseWriter, r *http.Request) {
	p, err := h.patterns.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStatusError(w, err)
		return
	}
	if len(p.Cover) == 0 {
		writeStatusError(w, fmt.Errorf("cover of %s: %w", p.ID, domain.ErrNotFound))
		return
	}
	writeImage(w, p.Cover)
}

// HandleCoverThumb serves the cached thumbnail of a pattern's cover.
// GET /patterns/{id}/cover/thumb
func (h *Handler) HandleCoverThumb(w http.ResponseWriter, r *http.Request) {
	data, err := h.images.CoverThumbnail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStatusError(w, err)
		return
	}
	writeImage(w, data)
}

// HandleImageRaw serves one additional image.
// GET /patterns/{id}/images/{localID}/raw
func (h *Handler) HandleImageRaw(w http.ResponseWriter, r *http.Request) {
	localID, err := strconv.Atoi(r.PathValue("localID"))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	_, img, err := h.patterns.Image(r.Context(), r.PathValue("id"), localID)
	if err != nil {
		writeStatusError(w, err)
		return
	}
	writeImage(w, img.Image)
}

func writeImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}
