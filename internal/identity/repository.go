package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gowiki/gowiki/internal/wiki/persistence"
)

// UserRepository defines persistence operations for users
type UserRepository interface {
	List(ctx context.Context) ([]User, error)
	SaveAll(ctx context.Context, users []User) error
}

// RecordUserRepository keeps all users in the "users" record of a persistence adapter.
type RecordUserRepository struct {
	adapter persistence.Adapter
}

func NewRecordUserRepository(a persistence.Adapter) *RecordUserRepository {
	return &RecordUserRepository{adapter: a}
}

func (r *RecordUserRepository) List(ctx context.Context) ([]User, error) {
	b, err := r.adapter.Load(ctx, persistence.RecordUsers)
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var users []User
	if err := json.Unmarshal(b, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (r *RecordUserRepository) SaveAll(ctx context.Context, users []User) error {
	if users == nil {
		users = []User{}
	}
	b, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return r.adapter.Save(ctx, persistence.RecordUsers, b)
}
