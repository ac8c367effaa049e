package pagination

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestMerge_PatchIsolation(t *testing.T) {
	cur := DefaultConfig()
	cur.Label = "Seite"

	next := Merge(cur, Patch{PageMargin: ptr(50.0)})

	assert.Equal(t, 50.0, next.PageMargin)
	assert.Equal(t, cur.PageHeight, next.PageHeight)
	assert.Equal(t, cur.PageWidth, next.PageWidth)
	assert.Equal(t, "Seite", next.Label)
	assert.Equal(t, cur.ShowPageNumber, next.ShowPageNumber)
	assert.Equal(t, 956.0, next.EffectiveHeight())
}

func TestMerge_HeightOnlyKeepsMarginAndLabel(t *testing.T) {
	next := Merge(DefaultConfig(), Patch{PageHeight: ptr(1200.0)})
	assert.Equal(t, 1200.0, next.PageHeight)
	assert.Equal(t, DefaultPageMargin, next.PageMargin)
	assert.Equal(t, DefaultLabel, next.Label)
}

func TestMerge_ExplicitZeroValuesApply(t *testing.T) {
	next := Merge(DefaultConfig(), Patch{ShowPageNumber: ptr(false), Label: ptr("")})
	assert.False(t, next.ShowPageNumber)
	assert.Equal(t, "", next.Label)
	assert.Equal(t, DefaultLabel, next.LabelText())
}

func TestPatch_IsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, Patch{Label: ptr("x")}.IsEmpty())
}

func TestStore_ApplyAndReplace(t *testing.T) {
	s := NewStore(DefaultConfig())

	got := s.Apply(Patch{PageMargin: ptr(50.0)})
	assert.Equal(t, got, s.Current())
	assert.Equal(t, DefaultPageHeight, s.Current().PageHeight)

	s.Apply(Patch{Label: ptr("Folio")})
	assert.Equal(t, 50.0, s.Current().PageMargin, "earlier patches survive later ones")
	assert.Equal(t, "Folio", s.Current().Label)

	s.Replace(Merge(DefaultConfig(), PageSizeA4.Patch()))
	assert.Equal(t, PageSizeA4.Height, s.Current().PageHeight)
	assert.Equal(t, DefaultLabel, s.Current().Label)
}

func TestStore_ConcurrentPatches(t *testing.T) {
	s := NewStore(DefaultConfig())
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Apply(Patch{PageMargin: ptr(float64(i))})
		}()
		go func() {
			defer wg.Done()
			cfg := s.Current()
			assert.Equal(t, DefaultPageHeight, cfg.PageHeight)
		}()
	}
	wg.Wait()
	assert.Equal(t, DefaultPageHeight, s.Current().PageHeight)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name  string
		patch Patch
	}{
		{"zero height", Patch{PageHeight: ptr(0.0)}},
		{"negative width", Patch{PageWidth: ptr(-1.0)}},
		{"negative margin", Patch{PageMargin: ptr(-1.0)}},
		{"margins swallow page", Patch{PageMargin: ptr(528.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Merge(DefaultConfig(), tt.patch).Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestLookupPageSize(t *testing.T) {
	s, ok := LookupPageSize("a4")
	require.True(t, ok)
	assert.Equal(t, PageSizeA4, s)

	_, ok = LookupPageSize("tabloid")
	assert.False(t, ok)

	cfg := Merge(DefaultConfig(), PageSizeLegal.Patch())
	assert.Equal(t, 1344.0, cfg.PageHeight)
	assert.Equal(t, DefaultPageMargin, cfg.PageMargin)
}
