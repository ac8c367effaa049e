// Package render draws a paginated document to PDF, starting a new page
// at every computed break.
package render

import (
	"io"
	"strconv"

	"codeberg.org/go-pdf/fpdf"

	"github.com/dgallion1/pageflow/internal/decoration"
	"github.com/dgallion1/pageflow/internal/doctree"
	"github.com/dgallion1/pageflow/internal/measure"
	"github.com/dgallion1/pageflow/internal/pagination"
)

// pxToPt converts CSS pixels (96 dpi) to PDF points (72 dpi).
const pxToPt = 0.75

// Renderer handles rendering to PDF.
type Renderer struct {
	Style   measure.Style
	Creator string
	// Compress toggles stream compression; tests turn it off to inspect output.
	Compress bool
}

// NewRenderer returns a renderer using the estimator's default typography.
func NewRenderer() *Renderer {
	return &Renderer{Style: measure.DefaultStyle(), Creator: "pageflow", Compress: true}
}

// Render writes doc to w. Pages follow breaks exactly: the output has
// len(breaks)+1 pages, whatever the content actually needs.
func (r *Renderer) Render(w io.Writer, doc *doctree.Document, breaks []pagination.BreakPoint, cfg pagination.PageConfig) error {
	margin := cfg.PageMargin * pxToPt
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: cfg.PageWidth * pxToPt, Ht: cfg.PageHeight * pxToPt},
	})
	pdf.SetCompression(r.Compress)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetCellMargin(0)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator(r.Creator, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if cfg.ShowPageNumber {
		label := cfg.LabelText()
		pdf.SetFooterFunc(func() {
			pdf.SetY(-margin * 0.6)
			pdf.SetFont("Helvetica", "I", 9)
			pdf.SetTextColor(128, 128, 128)
			pdf.CellFormat(0, 10, tr(decoration.MarkerText(label, pdf.PageNo())), "", 0, "C", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		})
	}

	starts := make(map[int]bool, len(breaks))
	for _, bp := range breaks {
		starts[bp.Pos] = true
	}

	pdf.AddPage()
	d := &drawer{
		pdf:    pdf,
		tr:     tr,
		style:  r.Style,
		starts: starts,
		left:   margin,
		width:  cfg.ContentWidth() * pxToPt,
	}
	for _, n := range doc.Children() {
		d.block(n, 0, "")
		pdf.Ln(r.Style.BlockSpacing * pxToPt)
	}
	return pdf.Output(w)
}

type drawer struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	style  measure.Style
	starts map[int]bool
	left   float64
	width  float64
}

// block draws n indented by indent points. marker is the list bullet or
// number for list items.
func (d *drawer) block(n *doctree.Node, indent float64, marker string) {
	if !n.Block() {
		return
	}
	if d.starts[n.Pos()] {
		d.pdf.AddPage()
	}
	s := d.style
	switch {
	case n.Is(doctree.TypeHeading):
		level := min(max(n.Level, 1), 6)
		d.text(n.TextContent(), "Helvetica", "B", s.FontSize*s.HeadingScale[level-1], indent)
	case n.Is(doctree.TypeParagraph):
		d.text(n.TextContent(), "Helvetica", "", s.FontSize, indent)
	case n.Is(doctree.TypeCodeBlock):
		pad := s.CodePadding * pxToPt
		d.pdf.Ln(pad)
		d.text(n.TextContent(), "Courier", "", s.CodeFontSize, indent+pad)
		d.pdf.Ln(pad)
	case n.Is(doctree.TypeRule):
		h := s.RuleHeight * pxToPt
		y := d.pdf.GetY() + h/2
		d.pdf.SetDrawColor(160, 160, 160)
		d.pdf.Line(d.left+indent, y, d.left+d.width, y)
		d.pdf.SetDrawColor(0, 0, 0)
		d.pdf.Ln(h)
	case n.Is(doctree.TypeImage):
		h := s.FontSize * s.LineHeight
		if v, ok := n.Attr("height"); ok && v > 0 {
			h = v
		}
		h *= pxToPt
		d.pdf.SetDrawColor(160, 160, 160)
		d.pdf.Rect(d.left+indent, d.pdf.GetY(), d.width-indent, h, "D")
		d.pdf.SetDrawColor(0, 0, 0)
		d.pdf.Ln(h)
	case n.Role() == doctree.RoleListContainer:
		ordered := n.Is(doctree.TypeOrderedList)
		for i, item := range n.Children {
			m := "•"
			if ordered {
				m = strconv.Itoa(i+1) + "."
			}
			d.block(item, indent, m)
		}
	case n.Role() == doctree.RoleListItem:
		pad := s.ListItemPadding * pxToPt
		d.pdf.Ln(pad)
		if marker != "" {
			d.pdf.SetFont("Helvetica", "", s.FontSize*pxToPt)
			d.pdf.SetX(d.left + indent)
			d.pdf.CellFormat(s.ListIndent*pxToPt, s.FontSize*s.LineHeight*pxToPt, d.tr(marker), "", 0, "L", false, 0, "")
		}
		for _, c := range n.Children {
			d.block(c, indent+s.ListIndent*pxToPt, "")
		}
		d.pdf.Ln(pad + s.ListItemMargin*pxToPt)
	case n.Is(doctree.TypeBlockquote):
		for _, c := range n.Children {
			d.block(c, indent+s.QuoteIndent*pxToPt, "")
		}
	case n.Is(doctree.TypeTable):
		d.table(n, indent)
	default:
		if len(n.Children) > 0 && n.Children[0].Block() {
			for _, c := range n.Children {
				d.block(c, indent, "")
			}
			return
		}
		d.text(n.TextContent(), "Helvetica", "", s.FontSize, indent)
	}
}

func (d *drawer) text(s, family, style string, sizePx, indent float64) {
	d.pdf.SetFont(family, style, sizePx*pxToPt)
	lineH := sizePx * d.style.LineHeight * pxToPt
	d.pdf.SetX(d.left + indent)
	d.pdf.MultiCell(d.width-indent, lineH, d.tr(s), "", "L", false)
}

func (d *drawer) table(n *doctree.Node, indent float64) {
	s := d.style
	d.pdf.SetFont("Helvetica", "", s.FontSize*pxToPt)
	lineH := s.FontSize*s.LineHeight*pxToPt + 2*s.CellPadding*pxToPt
	for _, row := range n.Children {
		if len(row.Children) == 0 {
			continue
		}
		cellW := (d.width - indent) / float64(len(row.Children))
		d.pdf.SetX(d.left + indent)
		for _, cell := range row.Children {
			d.pdf.CellFormat(cellW, lineH, d.tr(cell.TextContent()), "1", 0, "L", false, 0, "")
		}
		d.pdf.Ln(lineH)
	}
}
