package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUser        = errors.New("username, email and password are required")
)

// Service encapsulates user-related business logic
type Service struct {
	mu   sync.Mutex
	repo UserRepository
	cost int
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, cost: bcrypt.DefaultCost}
}

// Signup registers a new user. The first user ever registered becomes an admin.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) || u.Username == username {
			return nil, ErrUserExists
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		IsAdmin:      len(users) == 0,
		CreatedAt:    time.Now().UTC(),
		PasswordHash: string(hash),
	}
	if err := s.repo.SaveAll(ctx, append(users, u)); err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate checks an email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if !strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
		return &u, nil
	}
	return nil, ErrInvalidCredentials
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}
