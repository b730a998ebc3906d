package view_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/view"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestSummary(t *testing.T) {
	p := domain.Pattern{Company: "Simplicity", Year: "1974", Garments: []string{"dress", "top"}}
	if got := view.Summary(p); got != "Simplicity · 1974 · dress, top" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := view.Summary(domain.Pattern{Year: " "}); got != "" {
		t.Fatalf("expected empty summary, got %q", got)
	}
}

func TestPatternList_EscapesNames(t *testing.T) {
	html := render(t, view.PatternList([]domain.Pattern{{ID: "01HX", Name: "<script>alert(1)</script>"}}, ""))

	if strings.Contains(html, "<script>") {
		t.Fatal("pattern name was not escaped")
	}
	if !strings.Contains(html, "detail.open") {
		t.Fatal("expected a details button")
	}
}

func TestPatternList_Empty(t *testing.T) {
	if html := render(t, view.PatternList(nil, "")); !strings.Contains(html, "No patterns yet.") {
		t.Fatalf("unexpected empty list: %s", html)
	}
	if html := render(t, view.PatternList(nil, "coat")); !strings.Contains(html, "No patterns match") {
		t.Fatalf("unexpected empty search: %s", html)
	}
}

func TestPatternForm(t *testing.T) {
	p := &domain.Pattern{ID: "01HX", Name: "Coat", Garments: []string{"outerwear"}}
	p.AppendImages([]byte("a"), []byte("b"))

	html := render(t, view.PatternForm(p, []string{"dress"}))
	for _, want := range []string{
		`name="patternId" value="01HX"`,
		`value="outerwear" checked`,
		`value="dress">`,
		`/patterns/01HX/images/1/raw`,
		"Save changes",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in form:\n%s", want, html)
		}
	}

	html = render(t, view.PatternForm(&domain.Pattern{}, nil))
	if !strings.Contains(html, "Add pattern") || strings.Contains(html, "patternId") {
		t.Fatalf("unexpected add form:\n%s", html)
	}
}

func TestPage_Signals(t *testing.T) {
	html := render(t, view.Page("T", view.Signals{ViewToken: "tok", PatternID: "01HX"}, view.ImageBody()))
	if !strings.Contains(html, "&#34;viewtoken&#34;:&#34;tok&#34;") {
		t.Fatalf("expected escaped signals in page:\n%s", html)
	}
}

func TestPatternForm_EscapesUserText(t *testing.T) {
	p := &domain.Pattern{
		ID:       `01"HX`,
		Name:     `"><script>`,
		Notes:    "</textarea><script>",
		Garments: []string{"<b>cape</b>"},
		Cover:    []byte("c"),
	}
	p.AppendImages([]byte("a"))

	html := render(t, view.PatternForm(p, []string{"<i>dress</i>"}))
	for _, raw := range []string{"<script>", "</textarea><script>", "<b>", "<i>", `01"HX`} {
		if strings.Contains(html, raw) {
			t.Fatalf("unescaped %q in form:\n%s", raw, html)
		}
	}
	for _, want := range []string{"&lt;b&gt;cape&lt;/b&gt;", "&lt;i&gt;dress&lt;/i&gt;", "01&#34;HX"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in form:\n%s", want, html)
		}
	}
}
