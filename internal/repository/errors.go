// Package repository defines error types that are reused across
// repositories. These sentinel values allow higher layers such as the
// session service to distinguish a missing record from a conflicting one
// and both from a store that is simply unreachable.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update would duplicate the
// unique email index.
var ErrEmailExists = errors.New("email already exists")
