package decoration

import (
	"log/slog"
	"sync"

	"github.com/dgallion1/pageflow/internal/doctree"
	"github.com/dgallion1/pageflow/internal/pagination"
)

// Provider recomputes the marker set for a document whenever it is told
// something changed. Each pass replaces the previous set as a whole.
type Provider struct {
	store *pagination.Store
	log   *slog.Logger

	mu      sync.RWMutex
	current Set
}

// NewProvider attaches a provider to the configuration in store.
func NewProvider(store *pagination.Store, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	cfg := store.Current()
	return &Provider{
		store:   store,
		log:     log,
		current: Set{Markers: []Marker{}, Pages: 1, Config: cfg},
	}
}

// Store returns the configuration the provider reads.
func (p *Provider) Store() *pagination.Store { return p.store }

// Recompute runs a full pagination pass over doc and publishes the result.
func (p *Provider) Recompute(doc *doctree.Document, m pagination.Measurer) Set {
	cfg := p.store.Current()
	if err := cfg.Validate(); err != nil {
		p.log.Warn("paginating with degenerate config", "error", err)
	}

	set := NewSet(pagination.Paginate(doc, m, cfg))
	kept, dropped := set.Apply(doc)
	for _, mk := range dropped {
		p.log.Warn("dropping page break at invalid position", "pos", mk.Pos, "page", mk.Page)
	}
	set.Markers = kept

	p.mu.Lock()
	p.current = set
	p.mu.Unlock()

	p.log.Debug("pagination pass", "breaks", len(set.Markers), "pages", set.Pages)
	return set
}

// Current returns the most recently published set.
func (p *Provider) Current() Set {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}
