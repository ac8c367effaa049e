// Package session keeps editor sessions: a document, its measured heights
// and page configuration, and the page-break markers derived from them.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pageflow/internal/decoration"
	"github.com/dgallion1/pageflow/internal/doctree"
	"github.com/dgallion1/pageflow/internal/measure"
	"github.com/dgallion1/pageflow/internal/pagination"
)

// Session is one open document. Every change event runs a full pagination
// pass; events on one session are applied one at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	doc       *doctree.Document
	heights   measure.Table
	store     *pagination.Store
	provider  *decoration.Provider
	estimator *measure.Estimator
	revision  int
	updatedAt time.Time
}

// Snapshot is a read-only copy of session state. Doc is shared, not
// copied: documents are replaced wholesale, never edited in place.
type Snapshot struct {
	ID        string                `json:"session_id"`
	Title     string                `json:"title"`
	Revision  int                   `json:"revision"`
	Estimated bool                  `json:"estimated"`
	Doc       *doctree.Document     `json:"doc"`
	Config    pagination.PageConfig `json:"config"`
	Markers   []decoration.Marker   `json:"markers"`
	Pages     int                   `json:"pages"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Breaks returns the break points of the snapshot's markers.
func (s Snapshot) Breaks() []pagination.BreakPoint {
	return decoration.Set{Markers: s.Markers}.Breaks()
}

// New opens a session and runs the first pagination pass. A nil or empty
// heights table means the host has not measured anything; heights are then
// estimated.
func New(doc *doctree.Document, heights measure.Table, cfg pagination.PageConfig, est *measure.Estimator, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	if doc == nil {
		doc = doctree.New("")
	}
	id := uuid.NewString()
	store := pagination.NewStore(cfg)
	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		doc:       doc,
		heights:   heights.Clone(),
		store:     store,
		provider:  decoration.NewProvider(store, log.With("session_id", id)),
		estimator: est,
		updatedAt: now,
	}
	s.recomputeLocked()
	return s
}

// ReplaceDocument swaps in a new document and its heights.
func (s *Session) ReplaceDocument(doc *doctree.Document, heights measure.Table) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc == nil {
		doc = doctree.New("")
	}
	s.doc = doc
	s.heights = heights.Clone()
	s.recomputeLocked()
	return s.snapshotLocked()
}

// SetHeights replaces the measured heights for the current document.
func (s *Session) SetHeights(heights measure.Table) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heights = heights.Clone()
	s.recomputeLocked()
	return s.snapshotLocked()
}

// PatchConfig merges p into the page configuration. A patch that would
// leave the configuration invalid is rejected and nothing changes.
func (s *Session) PatchConfig(p pagination.Patch) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := pagination.Merge(s.store.Current(), p)
	if err := next.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("patch config: %w", err)
	}
	s.store.Replace(next)
	s.recomputeLocked()
	return s.snapshotLocked(), nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UpdatedAt is the time of the last change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) recomputeLocked() {
	s.provider.Recompute(s.doc, s.measurerLocked())
	s.revision++
	s.updatedAt = time.Now()
}

func (s *Session) measurerLocked() pagination.Measurer {
	if len(s.heights) > 0 || s.estimator == nil {
		return s.heights
	}
	return s.estimator.Estimate(s.doc, s.store.Current().ContentWidth())
}

func (s *Session) snapshotLocked() Snapshot {
	set := s.provider.Current()
	return Snapshot{
		ID:        s.ID,
		Title:     s.doc.Title,
		Revision:  s.revision,
		Estimated: len(s.heights) == 0 && s.estimator != nil,
		Doc:       s.doc,
		Config:    set.Config,
		Markers:   set.Markers,
		Pages:     set.Pages,
		UpdatedAt: s.updatedAt,
	}
}
