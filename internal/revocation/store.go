// Package revocation records tokens that must be rejected even though their
// signature and expiry are still valid. Every record expires on its own once
// the token it names would have expired anyway.
package revocation

import (
	"context"
	"time"

	"github.com/iliyamo/aloha-admin/internal/auth"
)

// Record is a single revoked token. It never outlives the token's own expiry.
type Record struct {
	Token     string         `json:"token"`
	UserID    string         `json:"userId"`
	Type      auth.TokenKind `json:"type"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// Store is the backing key-value store, keyed by the raw token string.
type Store interface {
	// Blacklist records rec. Recording the same token twice is not an error.
	Blacklist(ctx context.Context, rec Record) error
	// Claim records rec only if the token is not already recorded, and
	// reports whether this call was the one that recorded it.
	Claim(ctx context.Context, rec Record) (bool, error)
	// IsBlacklisted reports whether token has a live record.
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// Disabled is the store used when revocation is switched off: nothing is
// ever blacklisted and every claim succeeds.
type Disabled struct{}

func (Disabled) Blacklist(context.Context, Record) error { return nil }
func (Disabled) Claim(context.Context, Record) (bool, error) { return true, nil }
func (Disabled) IsBlacklisted(context.Context, string) (bool, error) { return false, nil }
