// Package decoration turns computed break points into page-break markers
// for a host renderer and keeps the current marker set for a document.
package decoration

import (
	"strconv"

	"github.com/dgallion1/pageflow/internal/doctree"
	"github.com/dgallion1/pageflow/internal/pagination"
)

// Marker is one page-break decoration, placed before the block at Pos.
type Marker struct {
	Pos        int    `json:"pos"`
	Page       int    `json:"page"`
	Label      string `json:"label"`
	Text       string `json:"text"`
	ShowNumber bool   `json:"showNumber"`
}

// NewMarker builds the marker for bp under cfg.
func NewMarker(bp pagination.BreakPoint, cfg pagination.PageConfig) Marker {
	label := cfg.LabelText()
	return Marker{
		Pos:        bp.Pos,
		Page:       bp.Page,
		Label:      label,
		Text:       MarkerText(label, bp.Page),
		ShowNumber: cfg.ShowPageNumber,
	}
}

// MarkerText formats a page label such as "Page 2".
func MarkerText(label string, page int) string {
	if label == "" {
		label = pagination.DefaultLabel
	}
	return label + " " + strconv.Itoa(page)
}

// Set is the full marker set of one pagination pass.
type Set struct {
	Markers []Marker              `json:"markers"`
	Pages   int                   `json:"pages"`
	Config  pagination.PageConfig `json:"config"`
}

// NewSet wraps a pagination result.
func NewSet(res pagination.Result) Set {
	markers := make([]Marker, 0, len(res.Breaks))
	for _, bp := range res.Breaks {
		markers = append(markers, NewMarker(bp, res.Config))
	}
	return Set{Markers: markers, Pages: res.Pages, Config: res.Config}
}

// Breaks returns the break points behind the markers.
func (s Set) Breaks() []pagination.BreakPoint {
	out := make([]pagination.BreakPoint, len(s.Markers))
	for i, m := range s.Markers {
		out[i] = pagination.BreakPoint{Pos: m.Pos, Page: m.Page}
	}
	return out
}

// Apply splits the markers into those that still sit at a block start in
// doc and those that do not. A set computed against an older document
// loses its stale markers instead of failing.
func (s Set) Apply(doc *doctree.Document) (kept, dropped []Marker) {
	kept = make([]Marker, 0, len(s.Markers))
	for _, m := range s.Markers {
		if doc.NodeAt(m.Pos) == nil {
			dropped = append(dropped, m)
			continue
		}
		kept = append(kept, m)
	}
	return kept, dropped
}
