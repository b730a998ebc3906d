// Package view holds the HTML components served to browser windows.
package view

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Signals are the datastar signals every page starts with.
type Signals struct {
	ViewToken string `json:"viewtoken"`
	Search    string `json:"search"`
	PatternID string `json:"patternId"`
	LocalID   int    `json:"localId"`
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;padding:1rem 1.5rem;color:#222}
h1{font-size:1.4rem}
.notice{padding:.5rem .75rem;border-radius:4px;background:#e8f4ea;margin-bottom:1rem}
.notice.error{background:#fbe9e9;color:#8a1f1f}
.patterns{display:grid;grid-template-columns:repeat(auto-fill,minmax(180px,1fr));gap:1rem;padding:0;list-style:none}
.patterns li{border:1px solid #ddd;border-radius:6px;padding:.5rem}
.patterns img{width:100%;height:160px;object-fit:cover;background:#f4f4f4}
.thumbs img{max-height:120px;margin:.25rem;cursor:pointer}
.full img{max-width:100%}
label{display:block;margin:.5rem 0 .2rem}
input[type=text],textarea{width:100%;max-width:32rem}
`

// Page wraps body in the document shell. The shell opens the view's event
// stream as soon as it loads.
func Page(title string, signals Signals, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		sig, err := json.Marshal(signals)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>%s</style>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"></script>
</head>
<body data-signals="%s" data-init="@get('/views/stream')">
<div id="notice"></div>
`, templ.EscapeString(title), styles, templ.EscapeString(string(sig))); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, "\n</body>\n</html>\n")
		return err
	})
}

// Notice renders a user-visible message.
func Notice(message string, isError bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		class := "notice"
		if isError {
			class += " error"
		}
		_, err := fmt.Fprintf(w, `<div class="%s" role="status">%s</div>`, class, templ.EscapeString(message))
		return err
	})
}

// ErrorPage renders a standalone error document.
func ErrorPage(status int, title, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>%d %s</title></head>
<body><h1>%s</h1><p>%s</p></body></html>
`, status, templ.EscapeString(title), templ.EscapeString(title), templ.EscapeString(message))
		return err
	})
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
