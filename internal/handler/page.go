package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/view"
)

// HandleMainList renders the main pattern list window.
func (h *Handler) HandleMainList(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, domain.MainListKey(), "Sewing Vault", func(string) templ.Component {
		return view.MainListBody()
	})
}

// HandleAddNew renders the add-pattern window.
func (h *Handler) HandleAddNew(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, domain.AddNewKey(), "Sewing Vault - Add New Pattern", func(token string) templ.Component {
		return view.EditorBody("Add New Pattern", token, view.CommandCreate)
	})
}

// HandlePatternDetail renders the window of one pattern. Its content
// arrives over the event stream.
func (h *Handler) HandlePatternDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.renderPage(w, r, domain.PatternDetailKey(id), "Sewing Vault - Pattern", func(token string) templ.Component {
		return view.EditorBody("Pattern", token, view.CommandSave)
	})
}

// HandleImageDetail renders the full-size window of one additional image.
func (h *Handler) HandleImageDetail(w http.ResponseWriter, r *http.Request) {
	localID, err := strconv.Atoi(r.PathValue("localID"))
	if err != nil || localID < 0 {
		w.WriteHeader(http.StatusBadRequest)
		view.ErrorPage(http.StatusBadRequest, "Bad Request", "Invalid image number.").Render(r.Context(), w)
		return
	}
	key := domain.ImageDetailKey(r.PathValue("id"), localID)
	h.renderPage(w, r, key, "Sewing Vault - Image", func(string) templ.Component {
		return view.ImageBody()
	})
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, key domain.ViewKey, title string, body func(token string) templ.Component) {
	token, err := h.tokens.Issue(key)
	if err != nil {
		slog.Error("issue view token", "key", key.String(), "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	signals := view.Signals{ViewToken: token, PatternID: key.PatternID, LocalID: key.ImageID}
	view.Page(title, signals, body(token)).Render(r.Context(), w)
}

// viewURL is the page address of a view key.
func viewURL(key domain.ViewKey) string {
	switch key.Kind {
	case domain.ViewAddNew:
		return "/patterns/new"
	case domain.ViewPatternDetail:
		return "/patterns/" + url.PathEscape(key.PatternID)
	case domain.ViewImageDetail:
		return "/patterns/" + url.PathEscape(key.PatternID) + "/images/" + strconv.Itoa(key.ImageID)
	default:
		return "/"
	}
}

// openWindowScript opens the window for key offset from the current one.
func openWindowScript(key domain.ViewKey) string {
	return "window.open(" + jsString(viewURL(key)) + ", " + jsString("sewing-vault "+key.String()) +
		", 'left=' + (window.screenX + 20) + ',top=' + (window.screenY + 20) + ',width=900,height=700')"
}
