// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package surface

import (
	"sync"

	"github.com/jeranaias/chatwidget/internal/export"
	"github.com/jeranaias/chatwidget/internal/model"
)

// =============================================================================
// HTML SURFACE
// =============================================================================

// HTMLSurface keeps an ordered, in-memory list of rendered message
// fragments and can write them out as a standalone page.
type HTMLSurface struct {
	mu       sync.Mutex
	order    []int64
	views    map[int64]View
	selected int64
}

// NewHTMLSurface creates an empty surface.
func NewHTMLSurface() *HTMLSurface {
	return &HTMLSurface{views: make(map[int64]View)}
}

// Mount implements Surface. Mounting an id that is already shown replaces
// its view in place.
func (s *HTMLSurface) Mount(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.views[v.ID()]; !exists {
		s.order = append(s.order, v.ID())
	}
	s.views[v.ID()] = v
}

// Update implements Surface.
func (s *HTMLSurface) Update(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.views[v.ID()]; exists {
		s.views[v.ID()] = v
	}
}

// Remove implements Surface.
func (s *HTMLSurface) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.views[id]; !exists {
		return
	}
	delete(s.views, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = 0
	}
}

// ClearAll implements Surface.
func (s *HTMLSurface) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.views = make(map[int64]View)
	s.selected = 0
}

// Highlight implements Highlighter.
func (s *HTMLSurface) Highlight(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.views[id]; exists {
		s.selected = id
	}
}

// Selected returns the highlighted message id, or 0.
func (s *HTMLSurface) Selected() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Views returns the current views in display order.
func (s *HTMLSurface) Views() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]View, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.views[id])
	}
	return out
}

// Markup returns the fragment shown for id.
func (s *HTMLSurface) Markup(id int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[id]
	return v.Markup, ok
}

// Document renders the surface as a standalone HTML page, using the
// fragments exactly as displayed.
func (s *HTMLSurface) Document(title string, opts *export.Options) ([]byte, error) {
	views := s.Views()

	conv := &model.Conversation{Title: title, Messages: make([]model.Message, 0, len(views))}
	markup := make(map[int64]string, len(views))
	for _, v := range views {
		conv.Messages = append(conv.Messages, v.Message)
		markup[v.ID()] = v.Markup
	}

	exporter := export.NewHTMLExporter(opts).WithContent(func(msg model.Message) string {
		return markup[msg.ID]
	})
	return exporter.Export(conv)
}
