package store

import (
	"strings"

	"github.com/gowiki/gowiki/internal/wiki"
	"golang.org/x/text/cases"
)

// SearchPages returns every page whose title or content contains query,
// compared under Unicode case folding, in insertion order. A blank query
// matches nothing.
func (s *Store) SearchPages(query string) []*wiki.Page {
	out := []*wiki.Page{}
	if strings.TrimSpace(query) == "" {
		return out
	}
	fold := cases.Fold()
	q := fold.String(query)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pages {
		if strings.Contains(fold.String(p.Title), q) || strings.Contains(fold.String(p.Content), q) {
			out = append(out, p.Clone())
		}
	}
	return out
}
