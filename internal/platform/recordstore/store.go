// Package recordstore owns the users, patients, visits and prescriptions
// tables. The tables live in memory and every mutation is persisted as one
// JSON document through a Backend before it becomes visible.
package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configure Open.
type Options struct {
	// SeedDemo inserts the demo users and patient into an empty store.
	SeedDemo bool
	// HashPassword is applied to seed passwords.
	HashPassword func(string) (string, error)
	Logger       zerolog.Logger
	Now          func() time.Time
}

// Store guards the document with a RWMutex. Reads share the lock; an update
// clones the document, mutates the clone, persists it and only then swaps it
// in, so a failed write leaves memory unchanged.
type Store struct {
	mu      sync.RWMutex
	doc     *Document
	backend Backend
	logger  zerolog.Logger
}

// Open loads the document from backend, validating it against the schema,
// and seeds it when empty and requested.
func Open(ctx context.Context, backend Backend, opts Options) (*Store, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Store{backend: backend, logger: opts.Logger.With().Str("component", "recordstore").Logger()}

	raw, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	doc := &Document{}
	if len(raw) > 0 {
		if err := ValidateDocument(raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
	}
	doc.normalize()
	s.doc = doc

	if opts.SeedDemo && needsSeed(doc) {
		err := s.Update(ctx, func(d *Document) error {
			return seedDemo(d, opts.HashPassword, opts.Now().UTC())
		})
		if err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		s.logger.Info().Str("backend", backend.Name()).Msg("seeded demo records")
	}

	s.logger.Info().
		Str("backend", backend.Name()).
		Int("users", len(s.doc.Users)).
		Int("patients", len(s.doc.Patients)).
		Int("visits", len(s.doc.Visits)).
		Int("prescriptions", len(s.doc.Prescriptions)).
		Msg("record store opened")
	return s, nil
}

// View runs fn under the read lock. fn must not modify or retain the document.
func (s *Store) View(fn func(d *Document) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.doc)
}

// Update applies fn to a copy of the document and persists it. If fn or the
// write fails, nothing changes.
func (s *Store) Update(ctx context.Context, fn func(d *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	if err := fn(next); err != nil {
		return err
	}
	data, err := encode(next)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, data); err != nil {
		s.logger.Error().Err(err).Str("backend", s.backend.Name()).Msg("persist document failed")
		return fmt.Errorf("persist document: %w", err)
	}
	s.doc = next
	return nil
}

// Snapshot returns the encoded current document.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return encode(s.doc)
}

// Driver names the backend in use.
func (s *Store) Driver() string {
	return s.backend.Name()
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func encode(d *Document) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}
