// Package middleware holds the Echo middleware shared by the route groups:
// the request authenticator and role gate, the Redis token bucket limiter
// and the response cache.
package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aloha-admin/internal/auth"
	"github.com/iliyamo/aloha-admin/internal/obs"
)

// Echo context keys set by JWTAuth.
const (
	KeyClaims = "claims"
	KeyUserID = "user_id"
	KeyRole   = "role"
	KeyToken  = "token"
)

type claimsKey struct{}

// RevocationChecker answers whether a token has been revoked.
type RevocationChecker interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// Authenticator is the per-request check run before every protected call.
type Authenticator struct {
	codec   *auth.Codec
	revoked RevocationChecker
	metrics *obs.Metrics
}

func NewAuthenticator(codec *auth.Codec, revoked RevocationChecker, metrics *obs.Metrics) *Authenticator {
	return &Authenticator{codec: codec, revoked: revoked, metrics: metrics}
}

// BearerToken extracts the token from an Authorization header value. The
// header must be exactly "Bearer <token>".
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" || strings.ContainsAny(token, " \t") {
		return "", auth.ErrTokenMissing
	}
	return token, nil
}

// Check authenticates an Authorization header value and returns the verified
// claims and the raw token. A token is rejected when it is missing, does not
// verify, has expired or is on the revocation list. Access and refresh tokens
// share one payload, so an unexpired refresh token also passes.
func (a *Authenticator) Check(ctx context.Context, header string) (auth.Claims, string, error) {
	claims, token, err := a.check(ctx, header)
	if err != nil {
		a.metrics.Rejection(string(auth.KindOf(err)))
	}
	return claims, token, err
}

func (a *Authenticator) check(ctx context.Context, header string) (auth.Claims, string, error) {
	token, err := BearerToken(header)
	if err != nil {
		return auth.Claims{}, "", err
	}
	claims, err := a.codec.Verify(token)
	if err != nil {
		return auth.Claims{}, "", err
	}
	revoked, err := a.revoked.IsBlacklisted(ctx, token)
	if err != nil {
		return auth.Claims{}, "", err
	}
	if revoked {
		return auth.Claims{}, "", auth.ErrTokenRevoked
	}
	return claims, token, nil
}

// JWTAuth rejects requests that fail Check and otherwise exposes the claims
// to handlers, both on the Echo context and on the request context. It does
// not tell access tokens from refresh tokens; see Check.
func JWTAuth(a *Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			claims, token, err := a.Check(req.Context(), req.Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}
			c.Set(KeyClaims, claims)
			c.Set(KeyUserID, claims.SubjectID())
			c.Set(KeyRole, string(claims.Role))
			c.Set(KeyToken, token)
			c.SetRequest(req.WithContext(WithClaims(req.Context(), claims)))
			return next(c)
		}
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims JWTAuth attached to a request context.
func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return claims, ok
}

// ClaimsFrom returns the claims of the authenticated caller, or
// ErrTokenMissing when the route was not wrapped in JWTAuth.
func ClaimsFrom(c echo.Context) (auth.Claims, error) {
	if claims, ok := c.Get(KeyClaims).(auth.Claims); ok {
		return claims, nil
	}
	return auth.Claims{}, auth.ErrTokenMissing
}

// TokenFrom returns the raw bearer token JWTAuth accepted.
func TokenFrom(c echo.Context) string {
	s, _ := c.Get(KeyToken).(string)
	return s
}
