package paper

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

// Mode selects the HTML rendition of a paper.
type Mode string

const (
	// ModePreview is the on-screen view.
	ModePreview Mode = "preview"
	// ModePrint adds the A4 page rules and opens the print dialog.
	ModePrint Mode = "print"
)

// ParseMode maps a query value to a Mode. Empty means preview.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModePreview:
		return ModePreview, nil
	case ModePrint:
		return ModePrint, nil
	}
	return "", fmt.Errorf("unknown paper mode %q", s)
}

//go:embed templates/paper.html.tmpl
var templateFS embed.FS

var paperTemplate = template.Must(template.ParseFS(templateFS, "templates/paper.html.tmpl"))

type htmlView struct {
	Layout *Layout
	Print  bool
}

// RenderHTML writes layout as a standalone HTML document. Preview and print
// execute the same template; print only adds page rules.
func RenderHTML(w io.Writer, layout *Layout, mode Mode) error {
	if layout == nil {
		return fmt.Errorf("render html: nil layout")
	}
	return paperTemplate.Execute(w, htmlView{Layout: layout, Print: mode == ModePrint})
}
