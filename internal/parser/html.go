package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/pageflow/internal/doctree"
)

// HTMLParser handles HTML files.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := titleOf(filename)
	if t := findTitle(root); t != "" {
		title = t
	}

	start := findBody(root)
	if start == nil {
		start = root
	}
	return doctree.New(title, htmlBlocks(start)...), nil
}

// htmlBuilder collects blocks from a subtree. Loose inline content between
// blocks is gathered into paragraphs.
type htmlBuilder struct {
	out    []*doctree.Node
	inline strings.Builder
}

func htmlBlocks(n *html.Node) []*doctree.Node {
	var b htmlBuilder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
	b.flush()
	return b.out
}

func (b *htmlBuilder) flush() {
	if t := collapseSpace(b.inline.String()); t != "" {
		b.out = append(b.out, doctree.Paragraph(t))
	}
	b.inline.Reset()
}

func (b *htmlBuilder) block(n *doctree.Node) {
	b.flush()
	if n != nil {
		b.out = append(b.out, n)
	}
}

func (b *htmlBuilder) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.inline.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		return
	case html.ElementNode:
	default:
		return
	}

	if level := headingLevel(n.Data); level > 0 {
		b.block(doctree.Heading(level, strings.Join(strings.Fields(textContent(n)), " ")))
		return
	}

	switch n.Data {
	case "script", "style", "nav", "footer", "header", "head", "noscript", "template":
		return
	case "br":
		b.inline.WriteByte('\n')
		return
	case "p":
		if t := collapseSpace(inlineHTML(n)); t != "" {
			b.block(doctree.Paragraph(t))
		} else {
			b.flush()
		}
		return
	case "ul", "ol":
		var items []*doctree.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "li" {
				items = append(items, listItem(c))
			}
		}
		if n.Data == "ol" {
			b.block(doctree.OrderedList(items...))
		} else {
			b.block(doctree.BulletList(items...))
		}
		return
	case "li":
		// Stray item outside a list.
		b.block(doctree.BulletList(listItem(n)))
		return
	case "pre":
		b.block(doctree.CodeBlock(strings.Trim(textContent(n), "\n")))
		return
	case "blockquote":
		b.block(doctree.Blockquote(htmlBlocks(n)...))
		return
	case "table":
		b.block(htmlTable(n))
		return
	case "hr":
		b.block(doctree.Rule())
		return
	}

	if blockElements[n.Data] {
		b.flush()
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			b.walk(c)
		}
		b.flush()
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
}

// blockElements are transparent containers that still separate paragraphs.
var blockElements = map[string]bool{
	"div": true, "section": true, "article": true, "main": true, "aside": true,
	"figure": true, "figcaption": true, "dl": true, "dt": true, "dd": true,
	"address": true, "details": true, "summary": true, "form": true, "fieldset": true,
}

func listItem(li *html.Node) *doctree.Node {
	blocks := htmlBlocks(li)
	if len(blocks) == 0 {
		blocks = []*doctree.Node{doctree.Paragraph("")}
	}
	return doctree.ListItem(blocks...)
}

func htmlTable(n *html.Node) *doctree.Node {
	var rows []*doctree.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				row := &doctree.Node{Type: doctree.TypeTableRow}
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
						blocks := htmlBlocks(cell)
						if len(blocks) == 0 {
							blocks = []*doctree.Node{doctree.Paragraph("")}
						}
						row.Children = append(row.Children, doctree.TableCell(blocks...))
					}
				}
				rows = append(rows, row)
			case "thead", "tbody", "tfoot":
				walk(c)
			}
		}
	}
	walk(n)
	if len(rows) == 0 {
		return nil
	}
	return doctree.Table(rows...)
}

// inlineHTML flattens an element's text, keeping <br> as newlines.
func inlineHTML(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return strings.TrimSpace(textContent(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
