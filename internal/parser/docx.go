package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/pageflow/internal/doctree"
)

// DOCXParser handles .docx files.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}
	return doctree.New(titleOf(filename), docxBlocks(doc.Document.Body.Items)...), nil
}

// docxBlocks converts body items. Consecutive numbered paragraphs form one
// list; their indent level picks the nesting depth.
func docxBlocks(items []any) []*doctree.Node {
	var out []*doctree.Node
	var lists []*doctree.Node // open list containers, outermost first

	for _, item := range items {
		switch it := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(it)
			if depth, ok := docxListLevel(it); ok {
				lists = appendListItem(lists, depth, text, &out)
				continue
			}
			lists = nil
			if text == "" {
				continue
			}
			if level := docxHeadingLevel(it); level > 0 {
				out = append(out, doctree.Heading(level, text))
			} else {
				out = append(out, doctree.Paragraph(text))
			}
		case *docx.Table:
			lists = nil
			if t := docxTable(it); t != nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// appendListItem adds an item at depth, opening or closing nested lists
// as needed, and returns the new stack of open lists.
func appendListItem(lists []*doctree.Node, depth int, text string, out *[]*doctree.Node) []*doctree.Node {
	if len(lists) == 0 {
		top := doctree.BulletList()
		*out = append(*out, top)
		lists = append(lists, top)
	}
	if len(lists) > depth+1 {
		lists = lists[:depth+1]
	}
	for len(lists) < depth+1 {
		parent := lists[len(lists)-1]
		if len(parent.Children) == 0 {
			parent.Children = append(parent.Children, doctree.ListItem())
		}
		last := parent.Children[len(parent.Children)-1]
		nested := doctree.BulletList()
		last.Children = append(last.Children, nested)
		lists = append(lists, nested)
	}
	top := lists[len(lists)-1]
	top.Children = append(top.Children, doctree.Item(text))
	return lists
}

func docxListLevel(para *docx.Paragraph) (int, bool) {
	if para.Properties == nil || para.Properties.NumProperties == nil {
		return 0, false
	}
	np := para.Properties.NumProperties
	if np.NumID == nil || np.NumID.Val == "" || np.NumID.Val == "0" {
		return 0, false
	}
	depth := 0
	if np.Ilvl != nil {
		if v, err := strconv.Atoi(np.Ilvl.Val); err == nil && v > 0 {
			depth = min(v, 8)
		}
	}
	return depth, true
}

func docxTable(t *docx.Table) *doctree.Node {
	var rows []*doctree.Node
	for _, tr := range t.TableRows {
		row := &doctree.Node{Type: doctree.TypeTableRow}
		for _, tc := range tr.TableCells {
			var blocks []*doctree.Node
			for _, p := range tc.Paragraphs {
				blocks = append(blocks, doctree.Paragraph(docxParagraphText(p)))
			}
			if len(blocks) == 0 {
				blocks = append(blocks, doctree.Paragraph(""))
			}
			row.Children = append(row.Children, doctree.TableCell(blocks...))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}
	return doctree.Table(rows...)
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(style, "heading"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 1 && n <= 6 {
			return n
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				buf.WriteString(t.Text)
			case *docx.Tab:
				buf.WriteByte(' ')
			case *docx.BarterRabbet:
				if t.Type == "" {
					buf.WriteByte('\n')
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
