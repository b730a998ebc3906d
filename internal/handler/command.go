package handler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/router"
	"github.com/msomdec/sewing-vault/internal/service"
	"github.com/msomdec/sewing-vault/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

const (
	maxCommandBody  = 256 << 20 // a full multi-image pick
	maxFormMemory   = 32 << 20
	maxUploadedFile = 10<<20 + 1 // one byte over the limit so the service can reject it
)

// commandRequest is the payload of a command, sent either as datastar
// signals or as a form.
type commandRequest struct {
	ViewToken string `json:"viewtoken"`
	Search    string `json:"search"`
	PatternID string `json:"patternId"`
	LocalID   int    `json:"localId"`

	form  url.Values
	files []service.ImageFile
}

// HandleCommand decodes a command sent by a window and dispatches it. The
// origin view comes from the window's token. Results reach the windows
// over their event streams, so success has no body.
// POST /commands/{name}
func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCommandBody)

	req, err := readCommandRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	origin, err := h.tokens.Parse(req.ViewToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cmd, err := h.buildCommand(r.Context(), r.PathValue("name"), origin, req)
	if err != nil {
		writeStatusError(w, err)
		return
	}

	if err := h.router.Dispatch(r.Context(), cmd); err != nil {
		writeStatusError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readCommandRequest(r *http.Request) (*commandRequest, error) {
	req := &commandRequest{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		files, err := readFiles(r)
		if err != nil {
			return nil, err
		}
		req.files = files
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
	default:
		if err := datastar.ReadSignals(r, req); err != nil {
			return nil, fmt.Errorf("read signals: %w", err)
		}
		return req, nil
	}

	req.form = r.Form
	req.ViewToken = r.FormValue("viewtoken")
	req.PatternID = r.FormValue("patternId")
	return req, nil
}

func readFiles(r *http.Request) ([]service.ImageFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var files []service.ImageFile
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, maxUploadedFile))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", header.Filename, err)
		}
		files = append(files, service.ImageFile{Name: header.Filename, Data: data})
	}
	return files, nil
}

func (h *Handler) buildCommand(ctx context.Context, name string, origin domain.ViewKey, req *commandRequest) (router.Command, error) {
	switch name {
	case "list.refresh":
		return router.RefreshList{Origin: origin, Search: req.Search}, nil
	case "addnew.open":
		return router.OpenAddNew{Origin: origin}, nil
	case "detail.open":
		return router.OpenDetail{Origin: origin, PatternID: req.PatternID}, nil
	case "detail.save":
		return h.saveCommand(ctx, origin, req)
	case "detail.delete":
		id := req.PatternID
		if origin.Kind == domain.ViewPatternDetail {
			id = origin.PatternID
		}
		return router.DeletePattern{Origin: origin, PatternID: id}, nil
	case "pattern.create":
		return h.createCommand(origin, req)
	case "image.pick":
		slot := req.form.Get("slot")
		if slot != view.SlotCover && slot != view.SlotImages {
			return nil, fmt.Errorf("%w: unknown picker slot %q", domain.ErrInvalidInput, slot)
		}
		return router.PickImages{
			Origin: origin,
			Target: origin,
			Slot:   slot,
			Multi:  slot == view.SlotImages,
			Picker: uploadPicker(req.files),
		}, nil
	case "image.view":
		return router.ViewImage{Origin: origin, PatternID: req.PatternID, LocalID: req.LocalID}, nil
	case "image.delete":
		id, localID := req.PatternID, req.LocalID
		if origin.Kind == domain.ViewImageDetail {
			id, localID = origin.PatternID, origin.ImageID
		}
		return router.DeleteImage{Origin: origin, PatternID: id, LocalID: localID}, nil
	}
	return nil, fmt.Errorf("%w: %s", router.ErrUnknownCommand, name)
}

// saveCommand overlays the submitted fields on the stored pattern. Images
// are not part of the form: removals happen in image windows and new ones
// are the images staged in the detail window.
func (h *Handler) saveCommand(ctx context.Context, origin domain.ViewKey, req *commandRequest) (router.Command, error) {
	if origin.Kind != domain.ViewPatternDetail {
		return nil, fmt.Errorf("%w: save from %s", domain.ErrInvalidInput, origin)
	}

	p, err := h.patterns.GetByID(ctx, origin.PatternID)
	if err != nil {
		return nil, err
	}
	applyForm(p, req.form)

	cover, images := h.staged(origin)
	if len(cover) > 0 {
		p.Cover = cover
	}
	return router.SaveDetail{Origin: origin, Pattern: *p, NewImages: images}, nil
}

func (h *Handler) createCommand(origin domain.ViewKey, req *commandRequest) (router.Command, error) {
	if origin.Kind != domain.ViewAddNew {
		return nil, fmt.Errorf("%w: create from %s", domain.ErrInvalidInput, origin)
	}

	var p domain.Pattern
	applyForm(&p, req.form)
	cover, images := h.staged(origin)
	p.Cover = cover
	return router.CreatePattern{Origin: origin, Pattern: p, NewImages: images}, nil
}

func (h *Handler) staged(key domain.ViewKey) ([]byte, [][]byte) {
	v, err := h.registry.Get(key)
	if err != nil {
		return nil, nil
	}
	wv, ok := v.(*webView)
	if !ok {
		return nil, nil
	}
	return wv.staged()
}

// applyForm copies the editable pattern fields from a submitted form.
func applyForm(p *domain.Pattern, form url.Values) {
	p.Name = form.Get("name")
	p.Company = form.Get("company")
	p.Year = form.Get("year")
	p.Notes = form.Get("notes")

	garments := append([]string(nil), form["garments"]...)
	garments = append(garments, strings.Split(form.Get("newGarments"), ",")...)
	p.Garments = garments
}

// uploadPicker hands over files already uploaded with the command.
type uploadPicker []service.ImageFile

func (p uploadPicker) PickFiles(ctx context.Context, multi bool) ([]service.ImageFile, error) {
	return p, nil
}
