package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/pageflow/internal/doctree"
)

// csvBatchSize is the number of data rows per table block.
const csvBatchSize = 20

// CSVParser handles CSV files. Rows are grouped into tables of
// csvBatchSize rows, each repeating the header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	title := titleOf(filename)
	if len(records) == 0 {
		return doctree.New(title), nil
	}

	headers := records[0]
	dataRows := records[1:]
	if len(dataRows) == 0 {
		return doctree.New(title, doctree.Table(doctree.TableRow(headers...))), nil
	}

	var blocks []*doctree.Node
	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))

		rows := []*doctree.Node{doctree.TableRow(headers...)}
		for _, rec := range dataRows[i:end] {
			rows = append(rows, doctree.TableRow(rec...))
		}
		blocks = append(blocks,
			doctree.Heading(3, fmt.Sprintf("Rows %d-%d", i+2, end+1)), // 1-indexed, skip header
			doctree.Table(rows...),
		)
	}

	return doctree.New(title, blocks...), nil
}
