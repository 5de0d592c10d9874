package middleware

import "github.com/labstack/echo/v4"

// subject returns the authenticated subject, or "anon" before JWTAuth ran.
func subject(c echo.Context) string {
	if s, ok := c.Get(CtxSubject).(string); ok && s != "" {
		return s
	}
	return "anon"
}
