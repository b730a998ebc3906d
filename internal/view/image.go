package view

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/msomdec/sewing-vault/internal/domain"
)

// ImageBody is the shell of an image window.
func ImageBody() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div id="image" class="full"></div>
<p><button type="button" data-on:click="confirm('Delete this image?') && @post('/commands/image.delete')">Delete image</button></p>
`)
		return err
	})
}

// ImageFull renders one additional image at full size.
func ImageFull(patternID, patternName string, img domain.AdditionalImage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>%s, image %d</h1><img src="/patterns/%s/images/%d/raw" alt="">`,
			templ.EscapeString(patternName), img.LocalID, templ.EscapeString(patternID), img.LocalID)
		return err
	})
}
