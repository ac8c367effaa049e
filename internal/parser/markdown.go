package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/pageflow/internal/doctree"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	return doctree.New(titleOf(filename), markdownBlocks(root, src)...), nil
}

// markdownBlocks converts the block children of n.
func markdownBlocks(n ast.Node, src []byte) []*doctree.Node {
	var out []*doctree.Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if b := markdownBlock(c, src); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func markdownBlock(n ast.Node, src []byte) *doctree.Node {
	switch node := n.(type) {
	case *ast.Heading:
		return doctree.Heading(node.Level, inlineText(node, src))
	case *ast.Paragraph, *ast.TextBlock:
		return doctree.Paragraph(inlineText(node, src))
	case *ast.List:
		var items []*doctree.Node
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if li, ok := c.(*ast.ListItem); ok {
				items = append(items, doctree.ListItem(markdownBlocks(li, src)...))
			}
		}
		if node.IsOrdered() {
			return doctree.OrderedList(items...)
		}
		return doctree.BulletList(items...)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return doctree.CodeBlock(strings.TrimSuffix(rawLines(node, src), "\n"))
	case *ast.Blockquote:
		return doctree.Blockquote(markdownBlocks(node, src)...)
	case *ast.ThematicBreak:
		return doctree.Rule()
	case *ast.HTMLBlock:
		t := strings.TrimSpace(rawLines(node, src))
		if t == "" {
			return nil
		}
		return doctree.Paragraph(t)
	}
	return nil
}

// rawLines returns the source lines of a block verbatim.
func rawLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}

// inlineText flattens the inline children of n. Soft breaks become spaces,
// hard breaks newlines.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Value(src))
				switch {
				case t.HardLineBreak():
					buf.WriteByte('\n')
				case t.SoftLineBreak():
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(t.Value)
			case *ast.AutoLink:
				buf.Write(t.Label(src))
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}
