package middleware

import "github.com/labstack/echo/v4"

// callerID returns the authenticated subject for keying limiter and cache
// entries, or "anon" before JWTAuth has run.
func callerID(c echo.Context) string {
	if s, ok := c.Get(KeyUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
