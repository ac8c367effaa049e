package measure

import (
	"strings"
	"sync"

	"codeberg.org/go-pdf/fpdf"

	"github.com/dgallion1/pageflow/internal/doctree"
)

// pxToPt converts CSS pixels (96 dpi) to PDF points (72 dpi).
const pxToPt = 0.75

// Style is the typography the estimator assumes. Sizes are CSS pixels.
type Style struct {
	FontSize        float64
	LineHeight      float64 // multiple of the font size
	BlockSpacing    float64 // added below every top-level block
	HeadingScale    [6]float64
	CodeFontSize    float64
	CodePadding     float64
	ListIndent      float64
	ListItemPadding float64
	ListItemMargin  float64
	QuoteIndent     float64
	RuleHeight      float64
	CellPadding     float64
}

// DefaultStyle approximates a browser default stylesheet.
func DefaultStyle() Style {
	return Style{
		FontSize:        16,
		LineHeight:      1.5,
		BlockSpacing:    16,
		HeadingScale:    [6]float64{2, 1.5, 1.17, 1, 0.83, 0.67},
		CodeFontSize:    14,
		CodePadding:     8,
		ListIndent:      24,
		ListItemPadding: 2,
		ListItemMargin:  4,
		QuoteIndent:     16,
		RuleHeight:      17,
		CellPadding:     4,
	}
}

// Estimator approximates rendered block heights using core PDF font
// metrics. It is safe for concurrent use.
type Estimator struct {
	style Style

	mu  sync.Mutex
	pdf *fpdf.Fpdf
}

// NewEstimator returns an estimator for the given style. Zero fields fall
// back to DefaultStyle.
func NewEstimator(style Style) *Estimator {
	def := DefaultStyle()
	if style.FontSize <= 0 {
		style.FontSize = def.FontSize
	}
	if style.LineHeight <= 0 {
		style.LineHeight = def.LineHeight
	}
	if style.CodeFontSize <= 0 {
		style.CodeFontSize = def.CodeFontSize
	}
	if style.HeadingScale == ([6]float64{}) {
		style.HeadingScale = def.HeadingScale
	}
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCellMargin(0)
	return &Estimator{style: style, pdf: pdf}
}

// Estimate returns a height for every block node of doc laid out at the
// given content width.
func (e *Estimator) Estimate(doc *doctree.Document, contentWidth float64) Table {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := make(Table)
	for _, n := range doc.Children() {
		h := e.block(n, contentWidth, t)
		if h > 0 {
			h += e.style.BlockSpacing
		}
		t[n.Pos()] = h
		// A list run is sized from its items, so the spacing after the
		// list lands on the last one.
		if n.Role() == doctree.RoleListContainer && len(n.Children) > 0 {
			if last := n.Children[len(n.Children)-1]; t[last.Pos()] > 0 {
				t[last.Pos()] += e.style.BlockSpacing
			}
		}
	}
	return t
}

// block records heights for n and its block descendants and returns n's
// own height without outer spacing.
func (e *Estimator) block(n *doctree.Node, width float64, t Table) float64 {
	if !n.Block() {
		return 0
	}
	s := e.style
	var h float64
	switch {
	case n.Is(doctree.TypeHeading):
		level := min(max(n.Level, 1), 6)
		size := s.FontSize * s.HeadingScale[level-1]
		h = e.text(n.TextContent(), "Helvetica", "B", size, width)
	case n.Is(doctree.TypeParagraph):
		h = e.text(n.TextContent(), "Helvetica", "", s.FontSize, width)
	case n.Is(doctree.TypeCodeBlock):
		h = e.text(n.TextContent(), "Courier", "", s.CodeFontSize, width-2*s.CodePadding) + 2*s.CodePadding
	case n.Is(doctree.TypeRule):
		h = s.RuleHeight
	case n.Is(doctree.TypeImage):
		h = s.FontSize * s.LineHeight
		if v, ok := n.Attr("height"); ok && v > 0 {
			h = v
		}
	case n.Role() == doctree.RoleListContainer:
		for _, c := range n.Children {
			h += e.block(c, width, t)
		}
	case n.Role() == doctree.RoleListItem:
		h = e.stack(n.Children, width-s.ListIndent, t) + 2*s.ListItemPadding + s.ListItemMargin
	case n.Is(doctree.TypeBlockquote):
		h = e.stack(n.Children, width-s.QuoteIndent, t)
	case n.Is(doctree.TypeTable):
		h = e.stack(n.Children, width, t)
	case n.Is(doctree.TypeTableRow):
		if len(n.Children) > 0 {
			cellW := width / float64(len(n.Children))
			for _, c := range n.Children {
				h = max(h, e.block(c, cellW, t))
			}
		}
	case n.Is(doctree.TypeTableCell):
		h = e.stack(n.Children, width-2*s.CellPadding, t) + 2*s.CellPadding
	default:
		h = e.stack(n.Children, width, t)
		if h == 0 {
			h = e.text(n.TextContent(), "Helvetica", "", s.FontSize, width)
		}
	}
	t[n.Pos()] = h
	return h
}

func (e *Estimator) stack(nodes []*doctree.Node, width float64, t Table) float64 {
	var h float64
	for _, c := range nodes {
		h += e.block(c, width, t)
	}
	return h
}

// text wraps s at width and returns the height of the resulting lines.
// An empty block still occupies one line.
func (e *Estimator) text(s, family, style string, sizePx, widthPx float64) float64 {
	lineH := sizePx * e.style.LineHeight
	if widthPx <= 0 {
		widthPx = sizePx
	}
	e.pdf.SetFont(family, style, sizePx*pxToPt)

	lines := 0
	for para := range strings.SplitSeq(latin1(s), "\n") {
		if para == "" {
			lines++
			continue
		}
		lines += max(1, len(e.pdf.SplitText(para, widthPx*pxToPt)))
	}
	return float64(max(lines, 1)) * lineH
}

// latin1 replaces runes outside the core font width tables with a glyph
// of typical width, so they are not measured as zero-width.
func latin1(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r > 0xFF:
			return '?'
		}
		return r
	}, s)
}
