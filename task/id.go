package task

import (
	"github.com/google/uuid"
)

// ID is an opaque identity key. Objects refer to each other by ID and resolve
// the reference through a Board instead of holding pointers.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// String returns the ID as a string.
func (id ID) String() string { return string(id) }

// IsZero reports whether the ID is empty.
func (id ID) IsZero() bool { return id == "" }
