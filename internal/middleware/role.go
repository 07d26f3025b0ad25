package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aloha-admin/internal/auth"
	"github.com/iliyamo/aloha-admin/internal/model"
)

// RequireRole lets the request through only when the authenticated caller's
// role is one of roles. It must run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	required := make([]string, 0, len(roles))
	for _, r := range roles {
		allowed[r] = true
		required = append(required, string(r))
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := ClaimsFrom(c)
			if err != nil {
				return err
			}
			if !allowed[claims.Role] {
				return &auth.PermissionError{Required: required, Actual: string(claims.Role)}
			}
			return next(c)
		}
	}
}
