package doctree

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_Positions(t *testing.T) {
	p1 := Paragraph("ab")
	item := Item("x")
	list := BulletList(item)
	p2 := Paragraph("")
	doc := New("doc", p1, list, p2)

	assert.Equal(t, 0, p1.Pos())
	assert.Equal(t, 4, p1.Size())

	// list(4) > item(5) > paragraph(6) > text(7)
	assert.Equal(t, 4, list.Pos())
	assert.Equal(t, 5, item.Pos())
	assert.Equal(t, 6, item.Children[0].Pos())
	assert.Equal(t, 7, list.Size())

	assert.Equal(t, 11, p2.Pos())
	assert.Equal(t, 2, p2.Size())
	assert.Equal(t, 13, doc.Size())
}

func TestLayout_LeafAndSurrogates(t *testing.T) {
	rule := Rule()
	emoji := Paragraph("a\U0001F600")
	doc := New("", rule, emoji)

	assert.Equal(t, 1, rule.Size())
	assert.Equal(t, 1, emoji.Pos())
	// 'a' is one unit, the emoji needs a surrogate pair.
	assert.Equal(t, 5, emoji.Size())
	assert.Equal(t, 6, doc.Size())
}

func TestLayout_InlineAtomsAreLeaves(t *testing.T) {
	src := `{"type":"doc","content":[
		{"type":"paragraph","content":[{"type":"text","text":"hi "},{"type":"mention","attrs":{"id":"u1"}}]},
		{"type":"paragraph","content":[{"type":"text","text":"b"},{"type":"emoji","attrs":{"name":"smile"}}]},
		{"type":"paragraph","content":[{"type":"text","text":"c"}]}
	]}`
	doc, err := Decode(strings.NewReader(src), "")
	require.NoError(t, err)
	first, second, third := doc.Children()[0], doc.Children()[1], doc.Children()[2]

	// open(1) + "hi "(3) + mention(1) + close(1)
	assert.Equal(t, 6, first.Size())
	assert.Equal(t, 6, second.Pos())
	assert.Equal(t, 1, first.Children[1].Size())
	assert.Equal(t, 4, second.Size())
	assert.Equal(t, 10, third.Pos())
	assert.Same(t, second, doc.NodeAt(6))
}

func TestLayout_ImageRoleFollowsContext(t *testing.T) {
	inline := Image("a.png", 0)
	para := &Node{Type: TypeParagraph, Children: []*Node{Text("x"), inline}}
	block := Image("b.png", 300)
	doc := New("", para, block)

	assert.Equal(t, RoleInline, inline.Role())
	assert.False(t, inline.Block())
	assert.Equal(t, 1, inline.Size())
	assert.Equal(t, 4, para.Size())

	assert.Equal(t, RoleBlock, block.Role())
	assert.Equal(t, 4, block.Pos())
	assert.Equal(t, 1, block.Size())
	assert.Same(t, block, doc.NodeAt(4))
	h, ok := block.Attr("height")
	assert.True(t, ok)
	assert.Equal(t, 300.0, h)
}

func TestRoles(t *testing.T) {
	tests := []struct {
		typ  string
		want Role
	}{
		{TypeBulletList, RoleListContainer},
		{"ordered_list", RoleListContainer},
		{TypeTaskList, RoleListContainer},
		{TypeListItem, RoleListItem},
		{"list_item", RoleListItem},
		{TypeParagraph, RoleBlock},
		{"callout", RoleBlock},
		{TypeText, RoleInline},
		{"hard_break", RoleInline},
		{"mention", RoleInline},
		{TypeImage, RoleBlock},
	}
	for _, tt := range tests {
		n := &Node{Type: tt.typ}
		assert.Equal(t, tt.want, n.Role(), "type %q", tt.typ)
	}
	assert.True(t, RoleListItem.IsList())
	assert.False(t, RoleBlock.IsList())
	assert.Equal(t, "otherBlock", RoleBlock.String())
}

func TestDescendants_DocumentOrderAndPruning(t *testing.T) {
	doc := New("",
		Heading(1, "Title"),
		BulletList(Item("one"), Item("two")),
		Paragraph("tail"),
	)

	var all []string
	for n := range doc.Blocks() {
		all = append(all, n.Type)
	}
	assert.Equal(t, []string{
		TypeHeading,
		TypeBulletList, TypeListItem, TypeParagraph, TypeListItem, TypeParagraph,
		TypeParagraph,
	}, all)

	var pruned []string
	for n := range doc.Descendants(func(n *Node) bool { return n.Role() == RoleListContainer }) {
		pruned = append(pruned, n.Type)
	}
	assert.Equal(t, []string{TypeHeading, TypeBulletList, TypeListItem, TypeListItem, TypeParagraph}, pruned)

	// The sequence is restartable.
	count := 0
	for range doc.Blocks() {
		count++
	}
	assert.Equal(t, len(all), count)
}

func TestNodeAt(t *testing.T) {
	item := Item("x")
	tail := Paragraph("tail")
	doc := New("", BulletList(item), tail)

	assert.Same(t, item, doc.NodeAt(item.Pos()))
	assert.Same(t, tail, doc.NodeAt(tail.Pos()))
	assert.Nil(t, doc.NodeAt(item.Pos()+2), "text offset is not a block start")
	assert.Nil(t, doc.NodeAt(-1))
	assert.Nil(t, doc.NodeAt(doc.Size()))
}

func TestTextContent(t *testing.T) {
	n := ListItem(Paragraph("first"), BulletList(Item("nested")))
	assert.Equal(t, "first\nnested", n.TextContent())

	p := &Node{Type: TypeParagraph, Children: []*Node{Text("a"), {Type: TypeHardBreak}, Text("b")}}
	assert.Equal(t, "a\nb", p.TextContent())
}

func TestJSON_RoundTripKeepsPositions(t *testing.T) {
	src := `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Intro"}]},
		{"type":"bullet_list","content":[
			{"type":"list_item","content":[{"type":"paragraph","content":[{"type":"text","text":"a"}]}]}
		]},
		{"type":"horizontalRule"}
	]}`

	doc, err := Decode(strings.NewReader(src), "notes")
	require.NoError(t, err)
	assert.Equal(t, "notes", doc.Title)
	require.Len(t, doc.Children(), 3)
	assert.Equal(t, 2, doc.Children()[0].Level)
	assert.Equal(t, RoleListContainer, doc.Children()[1].Role())

	out, err := json.Marshal(doc)
	require.NoError(t, err)

	var again Document
	require.NoError(t, json.Unmarshal(out, &again))
	require.Len(t, again.Children(), 3)
	for i, c := range doc.Children() {
		assert.Equal(t, c.Pos(), again.Children()[i].Pos())
		assert.Equal(t, c.Size(), again.Children()[i].Size())
	}
	assert.Equal(t, doc.Size(), again.Size())
}

func TestJSON_RoundTripKeepsAttrsAndMarks(t *testing.T) {
	src := `{"type":"doc","attrs":{"title":"t","lang":"en"},"content":[
		{"type":"paragraph","attrs":{"textAlign":"center"},"content":[
			{"type":"text","text":"link","marks":[{"type":"link","attrs":{"href":"https://example.com"}},{"type":"bold"}]}
		]},
		{"type":"image","attrs":{"src":"a.png","height":120}},
		{"type":"orderedList","attrs":{"start":3},"content":[
			{"type":"listItem","content":[{"type":"paragraph"}]}
		]},
		{"type":"heading","attrs":{"level":3,"id":"h"}}
	]}`
	doc, err := Decode(strings.NewReader(src), "")
	require.NoError(t, err)

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))

	text := doc.Children()[0].Children[0]
	require.Len(t, text.Marks, 2)
	assert.Equal(t, "link", text.Marks[0]["type"])
	assert.Equal(t, 3, doc.Children()[3].Level)
}

func TestJSON_RejectsNonDocRoot(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"type":"paragraph"}`), "")
	assert.Error(t, err)
}

func TestParagraph_NewlinesBecomeHardBreaks(t *testing.T) {
	p := Paragraph("a\nb")
	require.Len(t, p.Children, 3)
	assert.True(t, p.Children[1].Is(TypeHardBreak))
	assert.Equal(t, "a\nb", p.TextContent())

	doc := New("", p)
	assert.Equal(t, 5, doc.Size(), "text, break, text inside open and close")
}
