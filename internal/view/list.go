package view

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/msomdec/sewing-vault/internal/domain"
)

// MainListBody is the main window: search box, add button and the list
// region the stream fills in.
func MainListBody() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<h1>Sewing Vault</h1>
<div>
<input type="text" placeholder="Search by name" data-bind:search data-on:input__debounce.300ms="@post('/commands/list.refresh')">
<button type="button" data-on:click="@post('/commands/addnew.open')">Add pattern</button>
</div>
<div id="pattern-list"></div>
`)
		return err
	})
}

// PatternList renders the pattern cards.
func PatternList(patterns []domain.Pattern, search string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(patterns) == 0 {
			msg := "No patterns yet."
			if search != "" {
				msg = fmt.Sprintf("No patterns match %q.", search)
			}
			_, err := fmt.Fprintf(w, `<p>%s</p>`, templ.EscapeString(msg))
			return err
		}

		if _, err := io.WriteString(w, `<ul class="patterns">`); err != nil {
			return err
		}
		for _, p := range patterns {
			if err := patternCard(w, p); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

func patternCard(w io.Writer, p domain.Pattern) error {
	id := templ.EscapeString(p.ID)
	cover := `<div class="nocover"></div>`
	if len(p.Cover) > 0 {
		cover = fmt.Sprintf(`<img src="/patterns/%s/cover/thumb" alt="" loading="lazy">`, id)
	}
	_, err := fmt.Fprintf(w, `<li id="pattern-%s">%s<strong>%s</strong><br><small>%s</small><br>
<button type="button" data-on:click="%s">Details</button></li>`,
		id, cover, templ.EscapeString(p.Name), templ.EscapeString(Summary(p)),
		templ.EscapeString("$patternId = "+jsString(p.ID)+"; @post('/commands/detail.open')"))
	return err
}

// Summary renders the secondary line of a pattern card, such as
// "Simplicity · 1974 · dress, top".
func Summary(p domain.Pattern) string {
	var parts []string
	if c := strings.TrimSpace(p.Company); c != "" {
		parts = append(parts, c)
	}
	if y := strings.TrimSpace(p.Year); y != "" {
		parts = append(parts, y)
	}
	if len(p.Garments) > 0 {
		parts = append(parts, strings.Join(p.Garments, ", "))
	}
	return strings.Join(parts, " · ")
}
