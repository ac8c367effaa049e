package pagination

import (
	"iter"
	"math"

	"github.com/dgallion1/pageflow/internal/doctree"
)

// Measurer reports the rendered height of the block starting at pos.
// Zero means the block has not been measured yet.
type Measurer interface {
	Height(pos int) float64
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(pos int) float64

func (f MeasureFunc) Height(pos int) float64 { return f(pos) }

// BreakPoint is a position where a page-break marker goes and the number
// of the page that starts there.
type BreakPoint struct {
	Pos  int `json:"pos"`
	Page int `json:"page"`
}

// Unit is one block as seen by the page filler.
type Unit struct {
	Pos    int
	Height float64
	Role   doctree.Role
}

// Units yields the sizing units of doc in document order. Only list
// containers are descended into; any other block is atomic, its measured
// height already covers its content.
func Units(doc *doctree.Document, m Measurer) iter.Seq[Unit] {
	return func(yield func(Unit) bool) {
		for n := range doc.Descendants(sizingDescend) {
			if !n.Block() {
				continue
			}
			u := Unit{Pos: n.Pos(), Height: height(m, n.Pos()), Role: n.Role()}
			if !yield(u) {
				return
			}
		}
	}
}

func sizingDescend(n *doctree.Node) bool {
	return n.Role() == doctree.RoleListContainer
}

func height(m Measurer, pos int) float64 {
	h := m.Height(pos)
	if h <= 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	return h
}

type listRun struct {
	active bool
	start  int
	height float64
}

// Fill is the page-fill state threaded through one pagination pass.
// Values are meant to be used linearly: feed the returned Fill, not an
// older copy, since copies share the break slice.
type Fill struct {
	capacity float64
	used     float64
	page     int
	run      listRun
	breaks   []BreakPoint
}

// NewFill starts an empty first page for cfg.
func NewFill(cfg PageConfig) Fill {
	return Fill{capacity: cfg.EffectiveHeight(), page: 1, breaks: []BreakPoint{}}
}

// Feed advances the state by one unit.
func (f Fill) Feed(u Unit) Fill {
	if u.Height <= 0 {
		return f
	}
	if u.Role.IsList() {
		if !f.run.active {
			f.run = listRun{active: true, start: u.Pos}
			// An item only opens a run when its container was not measured.
			if u.Role == doctree.RoleListItem {
				f.run.height = u.Height
			}
			return f
		}
		f.run.height += u.Height
		return f
	}
	return f.Close().place(u.Pos, u.Height)
}

// Close places any open list run as a single block.
func (f Fill) Close() Fill {
	if !f.run.active {
		return f
	}
	run := f.run
	f.run = listRun{}
	return f.place(run.start, run.height)
}

func (f Fill) place(pos int, h float64) Fill {
	if h <= 0 {
		return f
	}
	if f.used > 0 && f.used+h > f.capacity {
		f.page++
		f.breaks = append(f.breaks, BreakPoint{Pos: pos, Page: f.page})
		f.used = h
		return f
	}
	f.used += h
	return f
}

// Breaks returns the break points emitted so far.
func (f Fill) Breaks() []BreakPoint { return f.breaks }

// Page is the number of the page currently being filled.
func (f Fill) Page() int { return f.page }

// Used is the height already placed on the current page.
func (f Fill) Used() float64 { return f.used }

// Fold runs units through a fresh Fill and closes it.
func Fold(units iter.Seq[Unit], cfg PageConfig) Fill {
	f := NewFill(cfg)
	for u := range units {
		f = f.Feed(u)
	}
	return f.Close()
}

// ComputeBreaks returns where page-break markers go in doc. It is a pure
// function of its inputs.
func ComputeBreaks(doc *doctree.Document, m Measurer, cfg PageConfig) []BreakPoint {
	return Fold(Units(doc, m), cfg).Breaks()
}

// Result is a completed pagination pass.
type Result struct {
	Breaks []BreakPoint `json:"breaks"`
	Pages  int          `json:"pages"`
	Config PageConfig   `json:"config"`
}

// Paginate is ComputeBreaks plus the page count.
func Paginate(doc *doctree.Document, m Measurer, cfg PageConfig) Result {
	f := Fold(Units(doc, m), cfg)
	return Result{Breaks: f.Breaks(), Pages: f.Page(), Config: cfg}
}
