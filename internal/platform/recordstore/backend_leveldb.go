package recordstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const levelDBKey = "histomed:document"

// LevelDBBackend keeps the document under a single key.
type LevelDBBackend struct {
	db *leveldb.DB
}

// NewLevelDBBackend opens (or creates) the database directory at path.
func NewLevelDBBackend(path string) (*LevelDBBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBBackend{db: db}, nil
}

// NewLevelDBBackendFromDB wraps an already opened database.
func NewLevelDBBackendFromDB(db *leveldb.DB) *LevelDBBackend {
	return &LevelDBBackend{db: db}
}

func (b *LevelDBBackend) Name() string { return DriverLevelDB }

func (b *LevelDBBackend) Load(_ context.Context) ([]byte, error) {
	data, err := b.db.Get([]byte(levelDBKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get: %w", err)
	}
	return data, nil
}

func (b *LevelDBBackend) Save(_ context.Context, data []byte) error {
	if err := b.db.Put([]byte(levelDBKey), data, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

func (b *LevelDBBackend) Close() error {
	return b.db.Close()
}
