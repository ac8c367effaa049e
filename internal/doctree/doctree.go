package doctree

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// Node type names. They follow the editor schema (camelCase); lookups also
// accept the snake_case spelling used by some editors.
const (
	TypeDoc         = "doc"
	TypeParagraph   = "paragraph"
	TypeHeading     = "heading"
	TypeBulletList  = "bulletList"
	TypeOrderedList = "orderedList"
	TypeTaskList    = "taskList"
	TypeListItem    = "listItem"
	TypeTaskItem    = "taskItem"
	TypeCodeBlock   = "codeBlock"
	TypeBlockquote  = "blockquote"
	TypeTable       = "table"
	TypeTableRow    = "tableRow"
	TypeTableCell   = "tableCell"
	TypeRule        = "horizontalRule"
	TypeText        = "text"
	TypeHardBreak   = "hardBreak"
	TypeImage       = "image"
)

// Role is the projection of a node type that pagination cares about.
type Role int

const (
	RoleBlock Role = iota
	RoleListContainer
	RoleListItem
	RoleInline
)

func (r Role) String() string {
	switch r {
	case RoleListContainer:
		return "listContainer"
	case RoleListItem:
		return "listItem"
	case RoleInline:
		return "inline"
	}
	return "otherBlock"
}

// IsList reports whether the role takes part in list grouping.
func (r Role) IsList() bool {
	return r == RoleListContainer || r == RoleListItem
}

var roles = map[string]Role{
	"bulletlist":  RoleListContainer,
	"orderedlist": RoleListContainer,
	"tasklist":    RoleListContainer,
	"listitem":    RoleListItem,
	"taskitem":    RoleListItem,
	"text":        RoleInline,
	"hardbreak":   RoleInline,
	"mention":     RoleInline,
	"emoji":       RoleInline,
}

// Leaf types occupy a single position and never hold content. Any other
// inline node without content is an atom and is a leaf too.
var leaves = map[string]bool{
	"horizontalrule": true,
	"hardbreak":      true,
	"image":          true,
}

// Textblocks hold inline content only.
var textblocks = map[string]bool{
	"paragraph": true,
	"heading":   true,
	"codeblock": true,
}

func canonical(t string) string {
	return strings.ToLower(strings.ReplaceAll(t, "_", ""))
}

// Node is one node of the content tree. Pos and Size are derived by
// Document.Layout and are only meaningful once the node is attached.
type Node struct {
	Type     string
	Text     string // text leaves only
	Level    int    // headings only
	Attrs    map[string]any
	Marks    []map[string]any
	Children []*Node

	pos    int
	size   int
	inText bool
}

// Pos is the document offset at which the node starts.
func (n *Node) Pos() int { return n.pos }

// Size is the number of positions the node spans.
func (n *Node) Size() int { return n.size }

// End is the offset just past the node.
func (n *Node) End() int { return n.pos + n.size }

// Role maps the node type to its pagination role. Everything inside a
// textblock is inline; elsewhere unknown types are blocks, so an image
// is inline within a paragraph and a block at the top level.
func (n *Node) Role() Role {
	if n.inText {
		return RoleInline
	}
	if r, ok := roles[canonical(n.Type)]; ok {
		return r
	}
	return RoleBlock
}

// Attr returns the numeric attribute key, accepting JSON numbers and ints.
func (n *Node) Attr(key string) (float64, bool) {
	switch v := n.Attrs[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Block reports whether the node renders as its own layout box.
func (n *Node) Block() bool { return n.Role() != RoleInline }

// Is reports whether the node has one of the given types.
func (n *Node) Is(types ...string) bool {
	c := canonical(n.Type)
	for _, t := range types {
		if c == canonical(t) {
			return true
		}
	}
	return false
}

// TextContent flattens the node's text. Block children are separated by
// newlines, hard breaks become newlines.
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n *Node) writeText(sb *strings.Builder) {
	switch {
	case n.Is(TypeText):
		sb.WriteString(n.Text)
		return
	case n.Is(TypeHardBreak):
		sb.WriteByte('\n')
		return
	}
	for i, c := range n.Children {
		if i > 0 && c.Block() {
			sb.WriteByte('\n')
		}
		c.writeText(sb)
	}
}

func (n *Node) layout(pos int, inText bool) int {
	n.pos = pos
	n.inText = inText
	switch {
	case n.Is(TypeText):
		n.size = textSize(n.Text)
	case leaves[canonical(n.Type)] || (len(n.Children) == 0 && n.Role() == RoleInline):
		n.size = 1
	default:
		inner := pos + 1
		children := n.holdsInline()
		for _, c := range n.Children {
			inner = c.layout(inner, children)
		}
		n.size = inner + 1 - pos
	}
	return pos + n.size
}

// holdsInline reports whether n's children are inline content. Unknown
// types count as textblocks when they hold text directly.
func (n *Node) holdsInline() bool {
	if n.inText || textblocks[canonical(n.Type)] {
		return true
	}
	for _, c := range n.Children {
		if c.Is(TypeText, TypeHardBreak) {
			return true
		}
	}
	return false
}

// textSize counts UTF-16 code units, matching editor offsets.
func textSize(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 && r != utf8.RuneError {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// Document is the root of a content tree.
type Document struct {
	Title string
	Root  *Node
}

// New builds a document from top-level blocks and lays out positions.
func New(title string, children ...*Node) *Document {
	d := &Document{
		Title: title,
		Root:  &Node{Type: TypeDoc, Children: children},
	}
	d.Layout()
	return d
}

// Layout recomputes Pos and Size for every node. Content starts at 0.
func (d *Document) Layout() {
	end := 0
	for _, c := range d.Root.Children {
		end = c.layout(end, false)
	}
	d.Root.pos = -1
	d.Root.size = end + 2
}

// Size is the length of the document content.
func (d *Document) Size() int {
	if d == nil || d.Root == nil {
		return 0
	}
	return d.Root.size - 2
}

// Children returns the top-level blocks.
func (d *Document) Children() []*Node {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.Children
}

// Descendants yields every node depth-first in document order. A node's
// children are visited only when descend returns true for it; a nil
// descend visits everything. The sequence can be ranged over repeatedly.
func (d *Document) Descendants(descend func(*Node) bool) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		var walk func(nodes []*Node) bool
		walk = func(nodes []*Node) bool {
			for _, n := range nodes {
				if !yield(n) {
					return false
				}
				if len(n.Children) > 0 && (descend == nil || descend(n)) {
					if !walk(n.Children) {
						return false
					}
				}
			}
			return true
		}
		walk(d.Children())
	}
}

// Blocks yields every block-level node in document order.
func (d *Document) Blocks() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range d.Descendants(nil) {
			if n.Block() && !yield(n) {
				return
			}
		}
	}
}

// NodeAt returns the block node starting exactly at pos, or nil.
func (d *Document) NodeAt(pos int) *Node {
	if pos < 0 || pos >= d.Size() {
		return nil
	}
	for n := range d.Descendants(func(n *Node) bool { return n.pos <= pos && pos < n.End() }) {
		if n.pos == pos && n.Block() {
			return n
		}
		if n.pos > pos {
			break
		}
	}
	return nil
}

// Text returns an inline text leaf.
func Text(s string) *Node {
	return &Node{Type: TypeText, Text: s}
}

// HardBreak returns an inline line break.
func HardBreak() *Node {
	return &Node{Type: TypeHardBreak}
}

func inline(s string) []*Node {
	if s == "" {
		return nil
	}
	return []*Node{Text(s)}
}

// lines splits s on newlines into text runs separated by hard breaks.
func lines(s string) []*Node {
	var out []*Node
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			out = append(out, HardBreak())
		}
		if line != "" {
			out = append(out, Text(line))
		}
	}
	return out
}

// Paragraph returns a paragraph holding s. Newlines become hard breaks.
func Paragraph(s string) *Node {
	if s == "" {
		return &Node{Type: TypeParagraph}
	}
	return &Node{Type: TypeParagraph, Children: lines(s)}
}

// Heading returns a heading of the given level.
func Heading(level int, s string) *Node {
	return &Node{Type: TypeHeading, Level: level, Children: inline(s)}
}

// BulletList returns an unordered list container.
func BulletList(items ...*Node) *Node {
	return &Node{Type: TypeBulletList, Children: items}
}

// OrderedList returns an ordered list container.
func OrderedList(items ...*Node) *Node {
	return &Node{Type: TypeOrderedList, Children: items}
}

// ListItem returns a list item holding the given blocks.
func ListItem(children ...*Node) *Node {
	return &Node{Type: TypeListItem, Children: children}
}

// Item is shorthand for a list item with a single paragraph.
func Item(s string) *Node {
	return ListItem(Paragraph(s))
}

// CodeBlock returns a preformatted block.
func CodeBlock(s string) *Node {
	return &Node{Type: TypeCodeBlock, Children: inline(s)}
}

// Blockquote returns a quote wrapping the given blocks.
func Blockquote(children ...*Node) *Node {
	return &Node{Type: TypeBlockquote, Children: children}
}

// Table returns a table of rows.
func Table(rows ...*Node) *Node {
	return &Node{Type: TypeTable, Children: rows}
}

// TableRow returns a row with one paragraph cell per value.
func TableRow(cells ...string) *Node {
	row := &Node{Type: TypeTableRow}
	for _, c := range cells {
		row.Children = append(row.Children, TableCell(Paragraph(c)))
	}
	return row
}

// TableCell returns a cell holding the given blocks.
func TableCell(children ...*Node) *Node {
	return &Node{Type: TypeTableCell, Children: children}
}

// Image returns an image leaf. A positive height is kept as an attribute.
func Image(src string, height float64) *Node {
	n := &Node{Type: TypeImage, Attrs: map[string]any{"src": src}}
	if height > 0 {
		n.Attrs["height"] = height
	}
	return n
}

// Rule returns a horizontal rule.
func Rule() *Node {
	return &Node{Type: TypeRule}
}
