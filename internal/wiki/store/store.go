// Package store owns the wiki page collection: the id and path indices, the
// per-page revision ledger, and search. All mutations are serialized by a
// single lock; reads run concurrently and always return copies.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowiki/gowiki/internal/identity"
	"github.com/gowiki/gowiki/internal/wiki"
	"github.com/gowiki/gowiki/internal/wiki/persistence"
	"github.com/gowiki/gowiki/pkg/logger"
	"github.com/gowiki/gowiki/pkg/metrics"
)

// Store is the document store. The zero value is not usable; call New.
type Store struct {
	mu       sync.RWMutex
	pages    []*wiki.Page // insertion order
	byID     map[string]*wiki.Page
	byPath   map[string]*wiki.Page
	settings wiki.Settings
	seq      map[string]uint64 // last snapshot taken per record

	adapter persistence.Adapter
	now     func() time.Time
	newID   func() string

	saveMu    sync.Mutex
	attempted map[string]saveResult // last snapshot handed to the adapter per record

	subMu   sync.Mutex
	subs    map[int]chan wiki.Event
	nextSub int
}

type saveResult struct {
	seq uint64
	err error
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the uuid generator for page and revision ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New returns an empty store that saves through adapter. Call Load to restore
// a previously saved collection.
func New(adapter persistence.Adapter, opts ...Option) *Store {
	s := &Store{
		byID:      make(map[string]*wiki.Page),
		byPath:    make(map[string]*wiki.Page),
		settings:  wiki.DefaultSettings(),
		seq:       make(map[string]uint64),
		adapter:   adapter,
		now:       time.Now,
		newID:     uuid.NewString,
		attempted: make(map[string]saveResult),
		subs:      make(map[int]chan wiki.Event),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the in-memory state with the saved documents and settings
// records. Missing records leave the defaults in place.
func (s *Store) Load(ctx context.Context) error {
	pages, err := s.loadPages(ctx)
	if err != nil {
		return err
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return err
	}

	if err := ValidatePages(pages); err != nil {
		return &PersistenceError{Op: "load", Record: persistence.RecordDocuments, Err: err}
	}
	byID := make(map[string]*wiki.Page, len(pages))
	byPath := make(map[string]*wiki.Page, len(pages))
	for _, p := range pages {
		if p.Revisions == nil {
			p.Revisions = []wiki.Revision{}
		}
		byID[p.ID] = p
		byPath[p.Path] = p
	}

	s.mu.Lock()
	s.pages = pages
	s.byID = byID
	s.byPath = byPath
	s.settings = settings
	s.mu.Unlock()

	metrics.Pages.Set(float64(len(pages)))
	logger.Infof("loaded %d pages", len(pages))
	return nil
}

func (s *Store) loadPages(ctx context.Context) ([]*wiki.Page, error) {
	b, err := s.adapter.Load(ctx, persistence.RecordDocuments)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", Record: persistence.RecordDocuments, Err: err}
	}
	pages, err := DecodePages(b)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Record: persistence.RecordDocuments, Err: err}
	}
	return pages, nil
}

func (s *Store) loadSettings(ctx context.Context) (wiki.Settings, error) {
	settings := wiki.DefaultSettings()
	b, err := s.adapter.Load(ctx, persistence.RecordSettings)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return settings, nil
	}
	if err != nil {
		return settings, &PersistenceError{Op: "load", Record: persistence.RecordSettings, Err: err}
	}
	if err := json.Unmarshal(b, &settings); err != nil {
		return settings, &PersistenceError{Op: "load", Record: persistence.RecordSettings, Err: err}
	}
	return settings, nil
}

// DecodePages parses a documents snapshot.
func DecodePages(b []byte) ([]*wiki.Page, error) {
	var pages []*wiki.Page
	if err := json.Unmarshal(b, &pages); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return pages, nil
}

// ValidatePages checks a decoded documents snapshot: no null entries, every
// path in the segment grammar, unique ids and paths, updatedAt not before
// createdAt, and ledger entries in edit order.
func ValidatePages(pages []*wiki.Page) error {
	ids := make(map[string]struct{}, len(pages))
	paths := make(map[string]struct{}, len(pages))
	for i, p := range pages {
		if p == nil {
			return fmt.Errorf("entry %d is null", i)
		}
		if p.ID == "" {
			return fmt.Errorf("entry %d has no id", i)
		}
		if !ValidPath(p.Path) {
			return fmt.Errorf("page %q: invalid path %q", p.ID, p.Path)
		}
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("duplicate page id %q", p.ID)
		}
		if _, dup := paths[p.Path]; dup {
			return fmt.Errorf("duplicate page path %q", p.Path)
		}
		if p.UpdatedAt.Before(p.CreatedAt) {
			return fmt.Errorf("page %q: updatedAt before createdAt", p.ID)
		}
		for j := 1; j < len(p.Revisions); j++ {
			if p.Revisions[j].EditedAt.Before(p.Revisions[j-1].EditedAt) {
				return fmt.Errorf("page %q: revision %d out of order", p.ID, j)
			}
		}
		ids[p.ID] = struct{}{}
		paths[p.Path] = struct{}{}
	}
	return nil
}

// CreatePage adds a page at path. The ledger starts empty.
// A *PersistenceError is returned together with the committed page when the save fails.
func (s *Store) CreatePage(ctx context.Context, title, content, path string, actor *identity.Identity) (*wiki.Page, error) {
	if !actor.Present() {
		return nil, s.reject("create", ErrUnauthenticated)
	}
	if strings.TrimSpace(title) == "" {
		return nil, s.reject("create", ErrInvalidTitle)
	}
	if !ValidPath(path) {
		return nil, s.reject("create", ErrInvalidPath)
	}

	s.mu.Lock()
	if _, exists := s.byPath[path]; exists {
		s.mu.Unlock()
		return nil, s.reject("create", ErrDuplicatePath)
	}
	now := s.now().UTC()
	p := &wiki.Page{
		ID:        s.newID(),
		Title:     title,
		Content:   content,
		Path:      path,
		CreatedBy: actor.Username,
		CreatedAt: now,
		UpdatedBy: actor.Username,
		UpdatedAt: now,
		Revisions: []wiki.Revision{},
	}
	s.pages = append(s.pages, p)
	s.byID[p.ID] = p
	s.byPath[p.Path] = p
	snap, seq, snapErr := s.snapshotPagesLocked()
	s.publishLocked(wiki.Event{Type: wiki.EventCreated, PageID: p.ID, Path: p.Path, Actor: actor.Username, At: now})
	out := p.Clone()
	count := len(s.pages)
	s.mu.Unlock()

	metrics.Pages.Set(float64(count))
	logger.Debugf("page created id=%s path=%s by=%s", out.ID, out.Path, actor.Username)
	return out, s.commit(ctx, "create", persistence.RecordDocuments, snap, seq, snapErr)
}

// GetPageByPath looks up a page by its path. No identity is required.
func (s *Store) GetPageByPath(path string) (*wiki.Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byPath[path]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// GetPage looks up a page by id.
func (s *Store) GetPage(id string) (*wiki.Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// UpdatePage replaces the content of a page, first appending a revision that
// holds the content being replaced. Last write wins; there is no conflict check.
func (s *Store) UpdatePage(ctx context.Context, id, content, comment string, actor *identity.Identity) (*wiki.Page, error) {
	if !actor.Present() {
		return nil, s.reject("update", ErrUnauthenticated)
	}

	s.mu.Lock()
	p, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, s.reject("update", ErrNotFound)
	}
	at := s.editTimeLocked(p)
	p.Revisions = append(p.Revisions, wiki.Revision{
		ID:       s.newID(),
		Content:  p.Content,
		EditedBy: actor.Username,
		EditedAt: at,
		Comment:  comment,
	})
	p.Content = content
	p.UpdatedBy = actor.Username
	p.UpdatedAt = at
	snap, seq, snapErr := s.snapshotPagesLocked()
	s.publishLocked(wiki.Event{Type: wiki.EventUpdated, PageID: p.ID, Path: p.Path, Actor: actor.Username, At: at})
	out := p.Clone()
	s.mu.Unlock()

	logger.Debugf("page updated id=%s revisions=%d by=%s", out.ID, len(out.Revisions), actor.Username)
	return out, s.commit(ctx, "update", persistence.RecordDocuments, snap, seq, snapErr)
}

// editTimeLocked keeps the ledger ordered and updatedAt >= createdAt even if
// the clock steps backwards.
func (s *Store) editTimeLocked(p *wiki.Page) time.Time {
	at := s.now().UTC()
	if n := len(p.Revisions); n > 0 && at.Before(p.Revisions[n-1].EditedAt) {
		at = p.Revisions[n-1].EditedAt
	}
	if at.Before(p.UpdatedAt) {
		at = p.UpdatedAt
	}
	return at
}

// DeletePage removes a page from both indices. Its history is discarded.
func (s *Store) DeletePage(ctx context.Context, id string, actor *identity.Identity) error {
	if !actor.Present() {
		return s.reject("delete", ErrUnauthenticated)
	}

	s.mu.Lock()
	p, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return s.reject("delete", ErrNotFound)
	}
	for i, cur := range s.pages {
		if cur == p {
			s.pages = append(s.pages[:i], s.pages[i+1:]...)
			break
		}
	}
	delete(s.byID, p.ID)
	delete(s.byPath, p.Path)
	snap, seq, snapErr := s.snapshotPagesLocked()
	s.publishLocked(wiki.Event{Type: wiki.EventDeleted, PageID: p.ID, Path: p.Path, Actor: actor.Username, At: s.now().UTC()})
	count := len(s.pages)
	s.mu.Unlock()

	metrics.Pages.Set(float64(count))
	logger.Debugf("page deleted id=%s path=%s by=%s", p.ID, p.Path, actor.Username)
	return s.commit(ctx, "delete", persistence.RecordDocuments, snap, seq, snapErr)
}

// Snapshot returns the encoded documents record as it would be saved now.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return encodePages(s.pages)
}

func encodePages(pages []*wiki.Page) ([]byte, error) {
	if pages == nil {
		pages = []*wiki.Page{}
	}
	return json.Marshal(pages)
}

func (s *Store) snapshotPagesLocked() ([]byte, uint64, error) {
	s.seq[persistence.RecordDocuments]++
	b, err := encodePages(s.pages)
	return b, s.seq[persistence.RecordDocuments], err
}

// commit saves a snapshot taken under the mutation lock. Saves are ordered by
// snapshot sequence: a snapshot older than one already handed to the adapter
// is dropped, since the newer one contains its changes, and it reports the
// outcome of that newer save.
func (s *Store) commit(ctx context.Context, op, record string, snap []byte, seq uint64, snapErr error) error {
	err := snapErr
	if err == nil {
		err = s.save(ctx, record, snap, seq)
	}
	if err != nil {
		logger.Warnf("%s committed in memory but %s was not saved: %v", op, record, err)
		metrics.PageMutations.WithLabelValues(op, "persistence_failure").Inc()
		return &PersistenceError{Op: "save", Record: record, Err: err}
	}
	metrics.PageMutations.WithLabelValues(op, "ok").Inc()
	return nil
}

func (s *Store) save(ctx context.Context, record string, snap []byte, seq uint64) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if last := s.attempted[record]; seq <= last.seq {
		return last.err
	}
	err := s.adapter.Save(ctx, record, snap)
	s.attempted[record] = saveResult{seq: seq, err: err}
	return err
}

func (s *Store) reject(op string, err error) error {
	outcome := "rejected"
	switch {
	case errors.Is(err, ErrUnauthenticated):
		outcome = "unauthenticated"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrDuplicatePath):
		outcome = "duplicate_path"
	case errors.Is(err, ErrInvalidPath), errors.Is(err, ErrInvalidTitle):
		outcome = "invalid"
	}
	metrics.PageMutations.WithLabelValues(op, outcome).Inc()
	return err
}
