// Package auth holds the pieces every session operation is built from: the
// error taxonomy shared by all layers, the signed token codec and the
// credential hasher.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies one member of the closed set of authentication failures.
// The string value is stable and is what clients see in the "error" field.
type Kind string

const (
	KindUnknown                 Kind = ""
	KindInvalidCredentials      Kind = "invalid_credentials"
	KindAlreadyExists           Kind = "already_exists"
	KindTokenMissing            Kind = "token_missing"
	KindTokenInvalid            Kind = "token_invalid"
	KindTokenExpired            Kind = "token_expired"
	KindTokenRevoked            Kind = "token_revoked"
	KindInsufficientPermissions Kind = "insufficient_permissions"
	KindStoreUnavailable        Kind = "store_unavailable"
)

// kindError is the shape shared by every variant in the taxonomy.
type kindError interface {
	error
	Kind() Kind
}

// sentinel is a field-less variant.
type sentinel struct {
	kind Kind
	msg  string
}

func (e *sentinel) Error() string { return e.msg }
func (e *sentinel) Kind() Kind { return e.kind }

var (
	ErrInvalidCredentials      error = &sentinel{KindInvalidCredentials, "invalid email or password"}
	ErrAlreadyExists           error = &sentinel{KindAlreadyExists, "email already registered"}
	ErrTokenMissing            error = &sentinel{KindTokenMissing, "missing bearer token"}
	ErrTokenInvalid            error = &sentinel{KindTokenInvalid, "invalid token"}
	ErrTokenExpired            error = &sentinel{KindTokenExpired, "token expired"}
	ErrTokenRevoked            error = &sentinel{KindTokenRevoked, "token revoked"}
	ErrInsufficientPermissions error = &sentinel{KindInsufficientPermissions, "insufficient permissions"}
	ErrStoreUnavailable        error = &sentinel{KindStoreUnavailable, "store unavailable"}
)

// ExpiredError reports a token that verified cryptographically but whose
// expiry has passed.
type ExpiredError struct {
	ExpiredAt time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("token expired at %s", e.ExpiredAt.UTC().Format(time.RFC3339))
}
func (e *ExpiredError) Kind() Kind { return KindTokenExpired }
func (e *ExpiredError) Is(target error) bool { return target == ErrTokenExpired }

// PermissionError reports an authenticated caller whose role is not allowed.
type PermissionError struct {
	Required []string
	Actual   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("role %q not in [%s]", e.Actual, strings.Join(e.Required, ","))
}
func (e *PermissionError) Kind() Kind { return KindInsufficientPermissions }
func (e *PermissionError) Is(target error) bool { return target == ErrInsufficientPermissions }

// StoreError wraps a failure of a backing store (identity or revocation).
type StoreError struct {
	Store string
	Err   error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s store: %v", e.Store, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }
func (e *StoreError) Kind() Kind { return KindStoreUnavailable }
func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// Unavailable wraps err as a StoreError for the named store. A nil err stays nil.
func Unavailable(store string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Store: store, Err: err}
}

// KindOf returns the taxonomy kind of err, or KindUnknown when err is not
// part of the taxonomy.
func KindOf(err error) Kind {
	var ke kindError
	if errors.As(err, &ke) {
		return ke.Kind()
	}
	return KindUnknown
}
