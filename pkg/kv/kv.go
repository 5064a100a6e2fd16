// Package kv provides the device-local key-value area that entity
// containers are persisted in.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("kv: key not found")

// Backend is a flat string-keyed byte store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key in ascending order.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Kind names a Backend implementation.
type Kind string

const (
	KindBadger Kind = "badger"
	KindSQLite Kind = "sqlite"
)

// ParseKind validates a backend name from configuration.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindBadger:
		return KindBadger, nil
	case KindSQLite:
		return KindSQLite, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want %q or %q)", raw, KindBadger, KindSQLite)
	}
}

// Options selects and locates a Backend.
type Options struct {
	Kind Kind
	// Dir holds the backend files. Ignored when InMemory is set.
	Dir      string
	InMemory bool
}

// Open constructs the backend described by opts.
func Open(ctx context.Context, opts Options) (Backend, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("kv: data directory is required")
	}
	switch opts.Kind {
	case KindBadger, "":
		b, err := OpenBadger(opts.Dir, opts.InMemory)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindSQLite:
		s, err := OpenSQLite(ctx, sqlitePath(opts))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("kv: unsupported backend %q", opts.Kind)
	}
}
