package paper

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

const (
	pdfFontFamily = "goregular"

	// 5mm, the same page margin as the HTML print view.
	pdfMargin = 14.17

	titleSize   = 18
	subjectSize = 11
	bodySize    = 12
	lineHeight  = 16
	blockGap    = 10
	boxSize     = 9
	answerPad   = 16
	nameBlankW  = 170
	nameGap     = 12
)

var (
	goFontOnce sync.Once
	goFont     *sfnt.Font
	goFontErr  error
)

// drawable replaces runes the embedded font has no glyph for, so a paper
// with text outside Latin scripts still renders.
func drawable(s string) (string, error) {
	goFontOnce.Do(func() {
		goFont, goFontErr = sfnt.Parse(goregular.TTF)
	})
	if goFontErr != nil {
		return "", fmt.Errorf("parse font: %w", goFontErr)
	}

	var buf sfnt.Buffer
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if idx, err := goFont.GlyphIndex(&buf, r); err != nil || idx == 0 {
			return '?'
		}
		return r
	}, s), nil
}

type pdfRenderer struct {
	pdf   *gopdf.GoPdf
	y     float64
	width float64
}

// RenderPDF writes layout as an A4 PDF. Checkable items are drawn as empty
// boxes and answer areas as boxes Rows lines tall; pages break between lines.
func RenderPDF(w io.Writer, layout *Layout) error {
	if layout == nil {
		return fmt.Errorf("render pdf: nil layout")
	}

	r, err := newPDFRenderer(layout.Header)
	if err != nil {
		return err
	}
	r.newPage()

	if err := r.header(layout.Header); err != nil {
		return err
	}
	for _, b := range layout.Blocks {
		if err := r.block(b); err != nil {
			return fmt.Errorf("question %d: %w", b.Number, err)
		}
	}

	if _, err := r.pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func newPDFRenderer(h Header) (*pdfRenderer, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetInfo(gopdf.PdfInfo{
		Title:   h.Title,
		Subject: h.Subject,
		Creator: "exam-paper",
	})
	if err := pdf.AddTTFFontData(pdfFontFamily, goregular.TTF); err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	return &pdfRenderer{pdf: pdf, width: gopdf.PageSizeA4.W - 2*pdfMargin}, nil
}

func (r *pdfRenderer) newPage() {
	r.pdf.AddPage()
	r.y = pdfMargin
}

// ensure starts a new page when h more points do not fit on the current one.
func (r *pdfRenderer) ensure(h float64) {
	if r.y+h > gopdf.PageSizeA4.H-pdfMargin {
		r.newPage()
	}
}

// wrapped draws s from x, wrapping at the right margin, and advances y.
func (r *pdfRenderer) wrapped(x float64, s string, size float64) error {
	s, err := drawable(s)
	if err != nil {
		return err
	}
	if err := r.pdf.SetFont(pdfFontFamily, "", size); err != nil {
		return err
	}

	lines := []string{s}
	if strings.TrimSpace(s) != "" {
		if lines, err = r.pdf.SplitText(s, r.width-(x-pdfMargin)); err != nil {
			return fmt.Errorf("wrap text: %w", err)
		}
	}
	for _, line := range lines {
		r.ensure(lineHeight)
		r.pdf.SetXY(x, r.y)
		if err := r.pdf.Cell(nil, line); err != nil {
			return err
		}
		r.y += lineHeight
	}
	return nil
}

// header draws the name field at the top right and wraps the title in the
// space to its left.
func (r *pdfRenderer) header(h Header) error {
	if err := r.pdf.SetFont(pdfFontFamily, "", bodySize); err != nil {
		return err
	}
	labelW, err := r.pdf.MeasureTextWidth(h.NameField + " ")
	if err != nil {
		return err
	}
	right := pdfMargin + r.width
	labelX := right - nameBlankW - labelW
	r.pdf.SetXY(labelX, r.y+4)
	if err := r.pdf.Cell(nil, h.NameField); err != nil {
		return err
	}
	r.pdf.SetLineWidth(0.8)
	r.pdf.Line(right-nameBlankW, r.y+4+bodySize, right, r.y+4+bodySize)

	lines, err := r.titleLines(h.Title, labelX-nameGap-pdfMargin)
	if err != nil {
		return err
	}
	for _, line := range lines {
		r.pdf.SetXY(pdfMargin, r.y)
		if err := r.pdf.Cell(nil, line); err != nil {
			return err
		}
		r.y += titleSize + 6
	}

	if h.Subject != "" {
		if err := r.wrapped(pdfMargin, h.Subject, subjectSize); err != nil {
			return err
		}
	}

	r.y += 4
	r.pdf.SetLineWidth(0.5)
	r.pdf.Line(pdfMargin, r.y, right, r.y)
	r.y += blockGap
	return nil
}

// titleLines splits the title into lines no wider than width at titleSize.
// It leaves the title font selected.
func (r *pdfRenderer) titleLines(title string, width float64) ([]string, error) {
	title, err := drawable(title)
	if err != nil {
		return nil, err
	}
	if err := r.pdf.SetFont(pdfFontFamily, "", titleSize); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return []string{title}, nil
	}
	lines, err := r.pdf.SplitText(title, width)
	if err != nil {
		return nil, fmt.Errorf("wrap title: %w", err)
	}
	return lines, nil
}

func (r *pdfRenderer) block(b Block) error {
	r.ensure(2 * lineHeight)
	if err := r.wrapped(pdfMargin, fmt.Sprintf("%d. %s", b.Number, b.Prompt), bodySize); err != nil {
		return err
	}

	switch b.Kind {
	case KindChoices:
		for _, c := range b.Choices {
			r.ensure(lineHeight)
			r.pdf.SetLineWidth(0.6)
			r.pdf.RectFromUpperLeftWithStyle(pdfMargin+4, r.y+3, boxSize, boxSize, "D")
			if err := r.wrapped(pdfMargin+4+boxSize+6, c.Label, bodySize); err != nil {
				return err
			}
		}
	case KindAnswer:
		if b.Answer != nil {
			r.answer(b.Answer.Rows)
		}
	}

	r.y += blockGap
	return nil
}

// answer draws a box Rows lines tall. A box taller than a page is split
// across pages.
func (r *pdfRenderer) answer(rows int) {
	remaining := float64(rows)*lineHeight + answerPad
	r.pdf.SetLineWidth(0.6)
	for remaining > 0 {
		r.ensure(lineHeight + answerPad)
		avail := gopdf.PageSizeA4.H - pdfMargin - r.y
		h := remaining
		if h > avail {
			h = avail
		}
		r.pdf.RectFromUpperLeftWithStyle(pdfMargin, r.y, r.width, h, "D")
		r.y += h
		remaining -= h
	}
}
