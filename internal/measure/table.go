// Package measure provides block heights for pagination: heights reported
// by a host that rendered the document, or estimates from font metrics.
package measure

import "maps"

// Table holds measured heights keyed by node position. A missing position
// reads as zero, i.e. not measured.
type Table map[int]float64

// Height implements pagination.Measurer.
func (t Table) Height(pos int) float64 { return t[pos] }

// Clone returns an independent copy.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	return maps.Clone(t)
}
