package decoration

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/pageflow/internal/doctree"
	"github.com/dgallion1/pageflow/internal/measure"
	"github.com/dgallion1/pageflow/internal/pagination"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func scenario() (*doctree.Document, measure.Table, *doctree.Node) {
	n1, n2, n3 := doctree.Paragraph("one"), doctree.Paragraph("two"), doctree.Paragraph("three")
	doc := doctree.New("", n1, n2, n3)
	return doc, measure.Table{n1.Pos(): 500, n2.Pos(): 500, n3.Pos(): 100}, n2
}

func TestNewMarker_Label(t *testing.T) {
	cfg := pagination.DefaultConfig()
	m := NewMarker(pagination.BreakPoint{Pos: 7, Page: 2}, cfg)
	assert.Equal(t, Marker{Pos: 7, Page: 2, Label: "Page", Text: "Page 2", ShowNumber: true}, m)

	cfg.Label = "Seite"
	cfg.ShowPageNumber = false
	m = NewMarker(pagination.BreakPoint{Pos: 7, Page: 3}, cfg)
	assert.Equal(t, "Seite 3", m.Text)
	assert.False(t, m.ShowNumber)

	cfg.Label = ""
	assert.Equal(t, "Page 4", NewMarker(pagination.BreakPoint{Page: 4}, cfg).Text)
}

func TestMarkerText(t *testing.T) {
	assert.Equal(t, "Page 12", MarkerText("", 12))
	assert.Equal(t, "Folio 1", MarkerText("Folio", 1))
}

func TestProvider_Recompute(t *testing.T) {
	doc, heights, n2 := scenario()
	var buf bytes.Buffer
	p := NewProvider(pagination.NewStore(pagination.DefaultConfig()), testLogger(&buf))

	assert.Empty(t, p.Current().Markers, "no markers before the first pass")

	set := p.Recompute(doc, heights)
	require.Len(t, set.Markers, 1)
	assert.Equal(t, n2.Pos(), set.Markers[0].Pos)
	assert.Equal(t, "Page 2", set.Markers[0].Text)
	assert.Equal(t, 2, set.Pages)
	assert.Equal(t, set, p.Current())
	assert.Equal(t, []pagination.BreakPoint{{Pos: n2.Pos(), Page: 2}}, set.Breaks())
}

func TestProvider_ConfigChangeReplacesSet(t *testing.T) {
	doc, heights, _ := scenario()
	store := pagination.NewStore(pagination.DefaultConfig())
	p := NewProvider(store, testLogger(&bytes.Buffer{}))

	require.Len(t, p.Recompute(doc, heights).Markers, 1)

	h := 2000.0
	store.Apply(pagination.Patch{PageHeight: &h})
	set := p.Recompute(doc, heights)
	assert.Empty(t, set.Markers, "all content fits on one taller page")
	assert.Equal(t, 1, set.Pages)
	assert.Empty(t, p.Current().Markers)
}

func TestProvider_WarnsOnDegenerateConfig(t *testing.T) {
	doc, heights, _ := scenario()
	cfg := pagination.DefaultConfig()
	cfg.PageMargin = 600
	var buf bytes.Buffer
	p := NewProvider(pagination.NewStore(cfg), testLogger(&buf))

	set := p.Recompute(doc, heights)
	assert.Len(t, set.Markers, 2, "every block after the first starts a page")
	assert.Contains(t, buf.String(), "degenerate config")
}

func TestSet_ApplyDropsStalePositions(t *testing.T) {
	doc, heights, _ := scenario()
	set := NewSet(pagination.Paginate(doc, heights, pagination.DefaultConfig()))
	require.Len(t, set.Markers, 1)

	// Editing the document shifts positions; the old set is now stale.
	edited := doctree.New("", doctree.Paragraph("one, now longer"), doctree.Paragraph("two"))
	set.Markers = append(set.Markers, Marker{Pos: 10_000, Page: 3})

	kept, dropped := set.Apply(edited)
	assert.Empty(t, kept)
	assert.Len(t, dropped, 2)

	kept, dropped = set.Apply(doc)
	assert.Len(t, kept, 1)
	assert.Len(t, dropped, 1)
}
