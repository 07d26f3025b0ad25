// Package service holds the session lifecycle and profile operations. It is
// the only layer that mints or retires sessions; handlers only translate
// between HTTP and these calls.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/aloha-admin/internal/auth"
	"github.com/iliyamo/aloha-admin/internal/model"
	"github.com/iliyamo/aloha-admin/internal/revocation"
)

// identityStore names the identity store in StoreUnavailable errors.
const identityStore = "identity"

// UserStore is the credential store the services depend on.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	Update(ctx context.Context, u *model.User) error
	List(ctx context.Context, limit, offset int) ([]model.User, error)
}

// Revocations is the part of the revocation list the session service writes.
type Revocations interface {
	Blacklist(ctx context.Context, rec revocation.Record) error
	Claim(ctx context.Context, rec revocation.Record) (bool, error)
}

// ValidationError reports unusable input. It is not part of the auth
// taxonomy; handlers map it to 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

const (
	minPasswordLen = 8
	maxNameLen     = 100
)

var validate = validator.New()

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Reason: "required"}
	}
	if err := validate.Var(email, "email,max=255"); err != nil {
		return &ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	return nil
}

func validatePassword(p string) error {
	if len(p) < minPasswordLen {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}
	if len(p) > auth.MaxPasswordBytes {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes)}
	}
	return nil
}

func validateName(field, v string) error {
	if len(v) > maxNameLen {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", maxNameLen)}
	}
	return nil
}

func subjectOf(u model.User) auth.Subject {
	return auth.Subject{ID: u.ID, Email: u.Email, Role: u.Role}
}

func defaultNow() time.Time { return time.Now().UTC() }
