package handler

import (
	"net/http"
	"time"

	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/router"
	"github.com/msomdec/sewing-vault/internal/service"
	"github.com/msomdec/sewing-vault/internal/session"
)

// pendingViewTTL bounds how long a view opened by a command waits for its
// window to connect.
const pendingViewTTL = 30 * time.Second

// Handler serves the browser windows: pages, their event streams and the
// command endpoint.
type Handler struct {
	router   *router.Router
	registry *session.Registry
	tokens   *service.ViewTokenService
	patterns *service.PatternService
	images   *service.ImageService
}

// New creates a new Handler.
func New(rt *router.Router, registry *session.Registry, tokens *service.ViewTokenService, patterns *service.PatternService, images *service.ImageService) *Handler {
	return &Handler{
		router:   rt,
		registry: registry,
		tokens:   tokens,
		patterns: patterns,
		images:   images,
	}
}

// NewView creates a browser-backed view waiting for its window. It is the
// router.ViewFactory for this package.
func NewView(key domain.ViewKey) session.View {
	return newWebView(key, pendingViewTTL)
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /healthz", h.HandleHealthz)

	mux.HandleFunc("GET /{$}", h.HandleMainList)
	mux.HandleFunc("GET /patterns/new", h.HandleAddNew)
	mux.HandleFunc("GET /patterns/{id}", h.HandlePatternDetail)
	mux.HandleFunc("GET /patterns/{id}/images/{localID}", h.HandleImageDetail)

	mux.HandleFunc("GET /patterns/{id}/cover", h.HandleCover)
	mux.HandleFunc("GET /patterns/{id}/cover/thumb", h.HandleCoverThumb)
	mux.HandleFunc("GET /patterns/{id}/images/{localID}/raw", h.HandleImageRaw)

	mux.HandleFunc("GET /views/stream", h.HandleStream)
	mux.HandleFunc("POST /commands/{name}", h.HandleCommand)
}
