// Package store persists named containers of records as JSON arrays in
// a kv.Backend. An absent container reads as empty; every failure is
// returned as a *Error so callers can tell "empty" from "failed".
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"checkround/pkg/kv"
)

// Container names an independently persisted collection of one record type.
type Container string

// Store reads and writes containers through a backend.
type Store struct {
	backend kv.Backend
	logger  zerolog.Logger
	onError func(op string, c Container, kind Kind)
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the logger failures are reported to.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithErrorHook registers fn to be called for every failure, after logging.
func WithErrorHook(fn func(op string, c Container, kind Kind)) Option {
	return func(s *Store) { s.onError = fn }
}

// New wraps backend. The zero logger discards output.
func New(backend kv.Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("store: backend is required")
	}
	s := &Store{backend: backend, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Backend exposes the underlying backend for whole-store operations such as snapshots.
func (s *Store) Backend() kv.Backend {
	return s.backend
}

// Read decodes container c. A container that was never written yields an empty, non-nil slice.
func Read[T any](ctx context.Context, s *Store, c Container) ([]T, error) {
	raw, err := s.backend.Get(ctx, string(c))
	if errors.Is(err, kv.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, s.fail("read", c, KindBackend, err)
	}

	records := []T{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, s.fail("read", c, KindCorrupt, err)
	}
	if records == nil {
		// a stored JSON null
		records = []T{}
	}
	return records, nil
}

// Write replaces container c with records.
func Write[T any](ctx context.Context, s *Store, c Container, records []T) error {
	if records == nil {
		records = []T{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return s.fail("write", c, KindEncode, err)
	}
	if err := s.backend.Put(ctx, string(c), raw); err != nil {
		return s.fail("write", c, KindBackend, err)
	}
	return nil
}

// Load decodes the single document stored under c into dest.
func (s *Store) Load(ctx context.Context, c Container, dest any) (bool, error) {
	raw, err := s.backend.Get(ctx, string(c))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, s.fail("load", c, KindBackend, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, s.fail("load", c, KindCorrupt, err)
	}
	return true, nil
}

// Save stores value as the single document under c.
func (s *Store) Save(ctx context.Context, c Container, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return s.fail("save", c, KindEncode, err)
	}
	if err := s.backend.Put(ctx, string(c), raw); err != nil {
		return s.fail("save", c, KindBackend, err)
	}
	return nil
}

// Remove deletes c. Removing an absent container is not an error.
func (s *Store) Remove(ctx context.Context, c Container) error {
	if err := s.backend.Delete(ctx, string(c)); err != nil {
		return s.fail("remove", c, KindBackend, err)
	}
	return nil
}

func (s *Store) fail(op string, c Container, kind Kind, err error) error {
	s.logger.Error().
		Err(err).
		Str("op", op).
		Str("container", string(c)).
		Str("kind", kind.String()).
		Msg("container operation failed")
	if s.onError != nil {
		s.onError(op, c, kind)
	}
	return &Error{Op: op, Container: c, Kind: kind, Err: err}
}

// String is used in log fields and metric labels.
func (k Kind) String() string {
	switch k {
	case KindBackend:
		return "backend"
	case KindCorrupt:
		return "corrupt"
	case KindEncode:
		return "encode"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}
