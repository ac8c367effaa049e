package pagination

import (
	"errors"
	"fmt"
	"strings"
)

// Default page geometry: US Letter at 96 dpi with one-inch margins.
const (
	DefaultPageHeight = 1056.0
	DefaultPageWidth  = 816.0
	DefaultPageMargin = 96.0
	DefaultLabel      = "Page"
)

// ErrInvalidConfig is returned by PageConfig.Validate.
var ErrInvalidConfig = errors.New("invalid page configuration")

// PageConfig describes the emulated page. Units are CSS pixels.
type PageConfig struct {
	PageHeight     float64 `json:"pageHeight"`
	PageWidth      float64 `json:"pageWidth"`
	PageMargin     float64 `json:"pageMargin"`
	Label          string  `json:"label,omitempty"`
	ShowPageNumber bool    `json:"showPageNumber"`
}

// DefaultConfig returns the configuration an engine starts with.
func DefaultConfig() PageConfig {
	return PageConfig{
		PageHeight:     DefaultPageHeight,
		PageWidth:      DefaultPageWidth,
		PageMargin:     DefaultPageMargin,
		Label:          DefaultLabel,
		ShowPageNumber: true,
	}
}

// EffectiveHeight is the printable height left after the top and bottom margins.
func (c PageConfig) EffectiveHeight() float64 {
	return c.PageHeight - 2*c.PageMargin
}

// ContentWidth is the printable width left after the side margins.
func (c PageConfig) ContentWidth() float64 {
	return c.PageWidth - 2*c.PageMargin
}

// LabelText returns the marker label, falling back to DefaultLabel.
func (c PageConfig) LabelText() string {
	if c.Label == "" {
		return DefaultLabel
	}
	return c.Label
}

// Validate checks the geometry. The engine itself never calls it: a
// degenerate configuration still paginates, just pathologically.
func (c PageConfig) Validate() error {
	switch {
	case c.PageHeight <= 0:
		return fmt.Errorf("%w: pageHeight must be positive, got %g", ErrInvalidConfig, c.PageHeight)
	case c.PageWidth <= 0:
		return fmt.Errorf("%w: pageWidth must be positive, got %g", ErrInvalidConfig, c.PageWidth)
	case c.PageMargin < 0:
		return fmt.Errorf("%w: pageMargin must not be negative, got %g", ErrInvalidConfig, c.PageMargin)
	case c.EffectiveHeight() <= 0:
		return fmt.Errorf("%w: pageHeight %g leaves no room inside margins of %g", ErrInvalidConfig, c.PageHeight, c.PageMargin)
	}
	return nil
}

// Patch is a partial PageConfig. Nil fields keep their current value.
type Patch struct {
	PageHeight     *float64 `json:"pageHeight,omitempty"`
	PageWidth      *float64 `json:"pageWidth,omitempty"`
	PageMargin     *float64 `json:"pageMargin,omitempty"`
	Label          *string  `json:"label,omitempty"`
	ShowPageNumber *bool    `json:"showPageNumber,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.PageHeight == nil && p.PageWidth == nil && p.PageMargin == nil &&
		p.Label == nil && p.ShowPageNumber == nil
}

// Merge applies p over cur, shallowly.
func Merge(cur PageConfig, p Patch) PageConfig {
	if p.PageHeight != nil {
		cur.PageHeight = *p.PageHeight
	}
	if p.PageWidth != nil {
		cur.PageWidth = *p.PageWidth
	}
	if p.PageMargin != nil {
		cur.PageMargin = *p.PageMargin
	}
	if p.Label != nil {
		cur.Label = *p.Label
	}
	if p.ShowPageNumber != nil {
		cur.ShowPageNumber = *p.ShowPageNumber
	}
	return cur
}

// PageSize is a named paper size in CSS pixels.
type PageSize struct {
	Name   string
	Width  float64
	Height float64
}

// Standard paper sizes at 96 dpi.
var (
	PageSizeLetter = PageSize{Name: "Letter", Width: 816, Height: 1056}
	PageSizeLegal  = PageSize{Name: "Legal", Width: 816, Height: 1344}
	PageSizeA4     = PageSize{Name: "A4", Width: 794, Height: 1123}
	PageSizeA5     = PageSize{Name: "A5", Width: 559, Height: 794}
)

// LookupPageSize finds a standard size by case-insensitive name.
func LookupPageSize(name string) (PageSize, bool) {
	for _, s := range []PageSize{PageSizeLetter, PageSizeLegal, PageSizeA4, PageSizeA5} {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return PageSize{}, false
}

// Patch returns a patch setting this size's width and height.
func (s PageSize) Patch() Patch {
	w, h := s.Width, s.Height
	return Patch{PageWidth: &w, PageHeight: &h}
}
