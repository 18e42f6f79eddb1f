package store

import (
	"sort"
	"strings"
	"time"

	"github.com/gowiki/gowiki/internal/wiki"
)

// ListPages returns all pages in insertion order.
func (s *Store) ListPages() []*wiki.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*wiki.Page, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, p.Clone())
	}
	return out
}

// Len returns the number of live pages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Revisions returns a copy of a page's ledger, oldest first.
func (s *Store) Revisions(id string) ([]wiki.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]wiki.Revision, len(p.Revisions))
	copy(out, p.Revisions)
	return out, nil
}

// RecentPages returns pages ordered by most recent update. limit <= 0 means all.
func (s *Store) RecentPages(limit int) []*wiki.Page {
	pages := s.ListPages()
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].UpdatedAt.After(pages[j].UpdatedAt)
	})
	if limit > 0 && len(pages) > limit {
		pages = pages[:limit]
	}
	return pages
}

// Sections groups pages by their first path segment, sorted by section name.
func (s *Store) Sections() []wiki.Section {
	idx := map[string]int{}
	var out []wiki.Section
	for _, p := range s.ListPages() {
		name := Section(p.Path)
		i, ok := idx[name]
		if !ok {
			i = len(out)
			idx[name] = i
			out = append(out, wiki.Section{Name: name})
		}
		out[i].Pages = append(out[i].Pages, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Breadcrumbs returns one crumb per prefix of path, named after the page at
// that prefix when one exists.
func (s *Store) Breadcrumbs(path string) []wiki.Crumb {
	if !ValidPath(path) {
		return nil
	}
	segments := strings.Split(path, "/")
	out := make([]wiki.Crumb, 0, len(segments))

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, seg := range segments {
		prefix := strings.Join(segments[:i+1], "/")
		c := wiki.Crumb{Name: seg, Path: prefix, Current: i == len(segments)-1}
		if p, ok := s.byPath[prefix]; ok {
			c.Name = p.Title
			c.Exists = true
		}
		out = append(out, c)
	}
	return out
}

// Contributions returns the pages username created, and the other pages they
// edited with the time of their latest edit, newest first.
func (s *Store) Contributions(username string) ([]*wiki.Page, []wiki.Contribution) {
	created := []*wiki.Page{}
	edits := []wiki.Contribution{}

	for _, p := range s.ListPages() {
		if p.CreatedBy == username {
			created = append(created, p)
			continue
		}
		var last time.Time
		if p.UpdatedBy == username {
			last = p.UpdatedAt
		}
		for _, r := range p.Revisions {
			if r.EditedBy == username && r.EditedAt.After(last) {
				last = r.EditedAt
			}
		}
		if !last.IsZero() {
			edits = append(edits, wiki.Contribution{Page: p, EditAt: last})
		}
	}
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].EditAt.After(edits[j].EditAt) })
	return created, edits
}
