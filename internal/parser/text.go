package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/pageflow/internal/doctree"
)

// TextParser handles plain text files. Blank lines separate paragraphs;
// a paragraph whose lines all carry bullets or numbers becomes a list.
type TextParser struct{}

var (
	bulletLine  = regexp.MustCompile(`^\s*[-*•]\s+(.*)$`)
	orderedLine = regexp.MustCompile(`^\s*\d+[.)]\s+(.*)$`)
)

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs [][]string
	var current []string

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	blocks := make([]*doctree.Node, 0, len(paragraphs))
	for _, lines := range paragraphs {
		blocks = append(blocks, textBlock(lines))
	}
	return doctree.New(titleOf(filename), blocks...), nil
}

func textBlock(lines []string) *doctree.Node {
	if items, ok := listItems(lines, bulletLine); ok {
		return doctree.BulletList(items...)
	}
	if items, ok := listItems(lines, orderedLine); ok {
		return doctree.OrderedList(items...)
	}
	return doctree.Paragraph(strings.Join(lines, "\n"))
}

func listItems(lines []string, re *regexp.Regexp) ([]*doctree.Node, bool) {
	items := make([]*doctree.Node, 0, len(lines))
	for _, line := range lines {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return nil, false
		}
		items = append(items, doctree.Item(m[1]))
	}
	return items, true
}
