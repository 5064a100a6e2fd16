package store

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure.
type Kind int

const (
	KindBackend Kind = iota + 1
	KindCorrupt
	KindEncode
)

var (
	// ErrBackend matches failures of the underlying key-value area.
	ErrBackend = errors.New("store: backend failure")
	// ErrCorrupt matches containers whose stored bytes do not decode.
	ErrCorrupt = errors.New("store: corrupt container")
	// ErrEncode matches records that could not be serialised.
	ErrEncode = errors.New("store: encode failure")
)

// Error describes a failed container operation.
type Error struct {
	Op        string
	Container Container
	Kind      Kind
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Container, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrBackend:
		return e.Kind == KindBackend
	case ErrCorrupt:
		return e.Kind == KindCorrupt
	case ErrEncode:
		return e.Kind == KindEncode
	}
	return false
}
