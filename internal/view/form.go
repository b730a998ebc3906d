package view

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/a-h/templ"
	"github.com/msomdec/sewing-vault/internal/domain"
)

// Form submit commands.
const (
	CommandCreate = "pattern.create"
	CommandSave   = "detail.save"
)

// Picker slots.
const (
	SlotCover  = "cover"
	SlotImages = "images"
)

// EditorBody is the shell of the add and detail windows. The image pickers
// live outside the pattern form so each can post its own multipart body.
func EditorBody(title, viewToken, command string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		token := templ.EscapeString(viewToken)
		_, err := fmt.Fprintf(w, `<h1 id="title">%s</h1>
%s
<div id="picked-cover"></div>
%s
<div id="picked-images"></div>
<form id="pattern-form-el" data-on:submit="@post('/commands/%s', {contentType: 'form'})">
<input type="hidden" name="viewtoken" value="%s">
<div id="pattern-form"></div>
</form>
`, templ.EscapeString(title),
			pickForm(token, SlotCover, "Cover image", false),
			pickForm(token, SlotImages, "Additional images", true),
			templ.EscapeString(command), token)
		return err
	})
}

func pickForm(token, slot, label string, multi bool) string {
	multiple := ""
	if multi {
		multiple = " multiple"
	}
	return fmt.Sprintf(`<form id="pick-%s" enctype="multipart/form-data">
<input type="hidden" name="viewtoken" value="%s">
<input type="hidden" name="slot" value="%s">
<label>%s <input type="file" name="files" accept="image/jpeg,image/png"%s data-on:change="@post('/commands/image.pick', {contentType: 'form'})"></label>
</form>`, slot, token, slot, templ.EscapeString(label), multiple)
}

// PatternForm renders the editable fields of a pattern. For a stored
// pattern it also shows the cover and the additional images, which open
// full size on click.
func PatternForm(p *domain.Pattern, vocabulary []string) templ.Component {
	if p == nil {
		p = &domain.Pattern{}
	}
	return group(
		coverPreview(p),
		textField("name", "Name", p.Name),
		textField("company", "Company", p.Company),
		textField("year", "Year", p.Year),
		garmentFields(p.Garments, vocabulary),
		notesField(p.Notes),
		imageThumbs(p),
		formActions(p.ID),
	)
}

// group renders components one after another.
func group(components ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, c := range components {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func coverPreview(p *domain.Pattern) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if p.ID == "" {
			return nil
		}
		id := templ.EscapeString(p.ID)
		if _, err := fmt.Fprintf(w, `<input type="hidden" name="patternId" value="%s">`, id); err != nil {
			return err
		}
		if len(p.Cover) == 0 {
			return nil
		}
		_, err := fmt.Fprintf(w, `<p><img src="/patterns/%s/cover/thumb" alt="Cover"></p>`, id)
		return err
	})
}

func textField(name, label, value string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<label for="%s">%s</label><input type="text" id="%s" name="%s" value="%s">`,
			name, label, name, name, templ.EscapeString(value))
		return err
	})
}

// garmentFields offers a checkbox per known label plus free entry of new
// ones. Labels of the pattern missing from the vocabulary still show.
func garmentFields(selected, vocabulary []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		labels := slices.Clone(vocabulary)
		for _, g := range selected {
			if !slices.Contains(labels, g) {
				labels = append(labels, g)
			}
		}
		slices.Sort(labels)

		if _, err := io.WriteString(w, `<fieldset><legend>Garments</legend>`); err != nil {
			return err
		}
		for _, g := range labels {
			if err := garmentCheckbox(w, g, slices.Contains(selected, g)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `<label>New garment types (comma separated) <input type="text" name="newGarments"></label></fieldset>`)
		return err
	})
}

func garmentCheckbox(w io.Writer, label string, checked bool) error {
	attr := ""
	if checked {
		attr = " checked"
	}
	g := templ.EscapeString(label)
	_, err := fmt.Fprintf(w, `<label><input type="checkbox" name="garments" value="%s"%s> %s</label>`, g, attr, g)
	return err
}

func notesField(notes string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<label for="notes">Notes</label><textarea id="notes" name="notes" rows="6">%s</textarea>`,
			templ.EscapeString(notes))
		return err
	})
}

func imageThumbs(p *domain.Pattern) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if p.ID == "" || len(p.AdditionalImages) == 0 {
			return nil
		}
		if _, err := io.WriteString(w, `<div class="thumbs">`); err != nil {
			return err
		}
		for _, img := range p.AdditionalImages {
			if err := imageThumb(w, p.ID, img.LocalID); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

func imageThumb(w io.Writer, patternID string, localID int) error {
	click := fmt.Sprintf("$patternId = %s; $localId = %d; @post('/commands/image.view')", jsString(patternID), localID)
	_, err := fmt.Fprintf(w, `<img src="/patterns/%s/images/%d/raw" alt="Image %d" data-on:click="%s">`,
		templ.EscapeString(patternID), localID, localID, templ.EscapeString(click))
	return err
}

func formActions(patternID string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if patternID == "" {
			_, err := io.WriteString(w, `<p><button type="submit">Add pattern</button></p>`)
			return err
		}
		click := fmt.Sprintf("confirm('Delete this pattern?') && ($patternId = %s, @post('/commands/detail.delete'))", jsString(patternID))
		_, err := fmt.Fprintf(w, `<p><button type="submit">Save changes</button> <button type="button" data-on:click="%s">Delete pattern</button></p>`,
			templ.EscapeString(click))
		return err
	})
}

// PickedImages previews the staged images of a picker slot.
func PickedImages(slot string, images [][]byte) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(images) == 0 {
			return nil
		}
		label := "New cover"
		if slot == SlotImages {
			label = fmt.Sprintf("%d new image(s)", len(images))
		}
		if _, err := fmt.Fprintf(w, `<div class="thumbs"><small>%s, saved with the pattern</small><br>`, templ.EscapeString(label)); err != nil {
			return err
		}
		for _, img := range images {
			if _, err := fmt.Fprintf(w, `<img src="%s" alt="">`, DataURL(img)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// DataURL inlines image bytes as a data URL.
func DataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
