package store

import (
	"context"
	"encoding/json"

	"github.com/gowiki/gowiki/internal/identity"
	"github.com/gowiki/gowiki/internal/wiki"
	"github.com/gowiki/gowiki/internal/wiki/persistence"
)

// GetSettings returns the stored settings. The store never acts on them.
func (s *Store) GetSettings() wiki.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings merges patch into the settings and saves the settings record.
// Restricting who may call it is left to the caller.
func (s *Store) UpdateSettings(ctx context.Context, patch wiki.SettingsPatch, actor *identity.Identity) (wiki.Settings, error) {
	if !actor.Present() {
		return wiki.Settings{}, s.reject("settings", ErrUnauthenticated)
	}

	s.mu.Lock()
	s.settings = patch.Apply(s.settings)
	out := s.settings
	s.seq[persistence.RecordSettings]++
	seq := s.seq[persistence.RecordSettings]
	snap, snapErr := json.Marshal(out)
	s.mu.Unlock()

	return out, s.commit(ctx, "settings", persistence.RecordSettings, snap, seq, snapErr)
}
