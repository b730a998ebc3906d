package handler

import (
	"net/http"
)

// HandleHealthz responds with a 200 OK, a JSON body indicating the server is
// healthy and the number of open views.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"views":  len(h.registry.Keys()),
	})
}
