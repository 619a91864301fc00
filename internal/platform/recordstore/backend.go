package recordstore

import (
	"context"
)

// Backend persists the encoded document as a single unit.
type Backend interface {
	// Load returns the stored document, or nil when nothing was stored yet.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored document.
	Save(ctx context.Context, data []byte) error
	Name() string
	Close() error
}

// Backend driver names.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverLevelDB  = "leveldb"
)
