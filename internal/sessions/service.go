package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/gowiki/gowiki/pkg/logger"
)

// Service issues and checks refresh sessions for wiki accounts.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// CreateSession stores a new refresh session and returns the refresh token
func (s *Service) CreateSession(ctx context.Context, username string, ttl time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	r := hex.EncodeToString(b)
	sess := &Session{
		RefreshToken: r,
		Username:     username,
		ExpiresAt:    time.Now().UTC().Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return r, nil
}

// ValidateRefresh returns the session for a live refresh token, or
// ErrSessionNotFound. Expired sessions are removed on sight.
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	if refresh == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := s.repo.GetByRefresh(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		_ = s.repo.DeleteByRefresh(ctx, refresh)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// DeleteRefresh ends one session.
func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.DeleteByRefresh(ctx, refresh)
}

// RevokeUser ends every session of username, e.g. "log out everywhere".
func (s *Service) RevokeUser(ctx context.Context, username string) (int, error) {
	n, err := s.repo.DeleteByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	logger.Infof("revoked %d sessions for %s", n, username)
	return n, nil
}
