package identity

import "time"

// User is a registered wiki user. PasswordHash is never rendered over HTTP.
type User struct {
	ID           string    `json:"id" bson:"id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	IsAdmin      bool      `json:"isAdmin" bson:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	PasswordHash string    `json:"passwordHash,omitempty" bson:"passwordHash,omitempty"`
}

// Identity returns the store-facing identity for u.
func (u *User) Identity() *Identity {
	return &Identity{Username: u.Username, IsAdmin: u.IsAdmin}
}

// Public returns a copy of u without credentials.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
