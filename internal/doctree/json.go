package doctree

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
)

// jsonNode mirrors the editor's JSON document format.
type jsonNode struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any   `json:"attrs,omitempty"`
	Marks   []map[string]any `json:"marks,omitempty"`
	Content []jsonNode       `json:"content,omitempty"`
}

// Decode reads an editor JSON document.
func Decode(r io.Reader, title string) (*Document, error) {
	var root jsonNode
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	d, err := fromJSON(root)
	if err != nil {
		return nil, err
	}
	if d.Title == "" {
		d.Title = title
	}
	return d, nil
}

// MarshalJSON encodes the document in the editor's JSON format.
func (d *Document) MarshalJSON() ([]byte, error) {
	root := jsonNode{Type: TypeDoc}
	if d.Root != nil {
		root.Attrs = maps.Clone(d.Root.Attrs)
	}
	if d.Title != "" {
		if root.Attrs == nil {
			root.Attrs = make(map[string]any, 1)
		}
		root.Attrs["title"] = d.Title
	}
	for _, c := range d.Children() {
		root.Content = append(root.Content, toJSON(c))
	}
	return json.Marshal(root)
}

// UnmarshalJSON decodes an editor JSON document and lays out positions.
func (d *Document) UnmarshalJSON(data []byte) error {
	var root jsonNode
	if err := json.Unmarshal(data, &root); err != nil {
		return err
	}
	parsed, err := fromJSON(root)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

func fromJSON(root jsonNode) (*Document, error) {
	if root.Type != "" && canonical(root.Type) != TypeDoc {
		return nil, fmt.Errorf("decode document: root node is %q, want %q", root.Type, TypeDoc)
	}
	children := make([]*Node, 0, len(root.Content))
	for _, c := range root.Content {
		children = append(children, nodeFromJSON(c))
	}
	title, _ := root.Attrs["title"].(string)
	d := New(title, children...)
	if len(root.Attrs) > 0 {
		d.Root.Attrs = maps.Clone(root.Attrs)
		delete(d.Root.Attrs, "title")
	}
	return d, nil
}

func nodeFromJSON(j jsonNode) *Node {
	n := &Node{Type: j.Type, Text: j.Text, Attrs: j.Attrs, Marks: j.Marks}
	if lvl, ok := j.Attrs["level"].(float64); ok {
		n.Level = int(lvl)
	}
	for _, c := range j.Content {
		n.Children = append(n.Children, nodeFromJSON(c))
	}
	return n
}

func toJSON(n *Node) jsonNode {
	j := jsonNode{Type: n.Type, Text: n.Text, Attrs: maps.Clone(n.Attrs), Marks: n.Marks}
	if n.Level > 0 {
		if j.Attrs == nil {
			j.Attrs = make(map[string]any, 1)
		}
		j.Attrs["level"] = n.Level
	}
	for _, c := range n.Children {
		j.Content = append(j.Content, toJSON(c))
	}
	return j
}
