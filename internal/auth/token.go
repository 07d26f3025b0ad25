package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/aloha-admin/internal/model"
)

// MinSecretLength is the shortest signing secret NewCodec accepts.
const MinSecretLength = 32

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenKind distinguishes access and refresh tokens. Both share one payload
// shape and differ only by lifetime and where they are accepted.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Subject is the identity a token is issued for.
type Subject struct {
	ID    string
	Email string
	Role  model.Role
}

// Claims is the signed payload. IssuedAt and ExpiresAt are carried as the
// registered iat/exp claims.
type Claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// SubjectID returns the sub claim.
func (c Claims) SubjectID() string { return c.Subject }

// Expiry returns the exp claim as a time, zero when absent.
func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Token is a signed token string together with its validity window.
type Token struct {
	Value     string
	IssuedAt  time.Time
	// ExpiresAt is truncated to whole seconds as encoded in exp, so the
	// lifetime can fall up to a second short of the requested one.
	ExpiresAt time.Time
}

// TokenPair is what every successful login, register and refresh returns.
type TokenPair struct {
	Access  Token
	Refresh Token
}

// CodecOptions configures token lifetimes and the clock.
type CodecOptions struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Codec signs and verifies HS256 tokens with a single server secret.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// NewCodec builds a Codec. Zero lifetimes fall back to the defaults.
func NewCodec(secret []byte, opts CodecOptions) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = DefaultRefreshTTL
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	c := &Codec{
		secret:     append([]byte(nil), secret...),
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        opts.Now,
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// Lifetime returns the configured lifetime for kind.
func (c *Codec) Lifetime(kind TokenKind) time.Duration {
	if kind == KindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Issue signs a token of the given kind for s.
func (c *Codec) Issue(s Subject, kind TokenKind) (Token, error) {
	return c.IssueWithLifetime(s, c.Lifetime(kind))
}

// IssueWithLifetime signs a token for s that expires lifetime from now.
func (c *Codec) IssueWithLifetime(s Subject, lifetime time.Duration) (Token, error) {
	if s.ID == "" {
		return Token{}, errors.New("issue token: empty subject")
	}
	now := c.now()
	exp := now.Add(lifetime)
	claims := Claims{
		Email: s.Email,
		Role:  s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, IssuedAt: claims.IssuedAt.Time, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Pair issues a fresh access and refresh token for s.
func (c *Codec) Pair(s Subject) (TokenPair, error) {
	access, err := c.Issue(s, KindAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := c.Issue(s, KindRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Verify checks the signature, algorithm and expiry of raw and returns its
// claims. Expired tokens fail with an *ExpiredError; anything else that does
// not verify fails with ErrTokenInvalid.
func (c *Codec) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := c.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.secret, nil
	})
	if err != nil {
		// An expired token is only reported as such once its signature checked
		// out; the library validates claims after the signature.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, &ExpiredError{ExpiredAt: claims.Expiry()}
		}
		return Claims{}, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}
