// Package persistence defines the durable record store used by the wiki and
// its adapters. A record is an opaque byte snapshot addressed by name.
package persistence

import (
	"context"
	"errors"
)

// Names of the records the wiki keeps.
const (
	RecordDocuments = "documents"
	RecordSettings  = "settings"
	RecordUsers     = "users"
)

var (
	// ErrRecordNotFound is returned by Load when no record with that name was ever saved.
	ErrRecordNotFound = errors.New("record not found")
)

// Adapter loads and saves whole named records.
type Adapter interface {
	// Load returns the last saved bytes for name, or ErrRecordNotFound.
	Load(ctx context.Context, name string) ([]byte, error)
	// Save replaces the record stored under name.
	Save(ctx context.Context, name string, data []byte) error
}
