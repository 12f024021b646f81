package middleware

// identity.go defines helper functions shared across middleware files.
// Currently it provides a userID extraction function that reads the
// user_id value JWTAuth stored in the Echo context. When no user is
// authenticated, "guest" is returned.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID extracts a user identifier from the request context. JWT
// subjects arrive as strings, but json decoding of claims can also
// surface numbers, so both are handled. Returns "guest" when no user
// is authenticated.
func userID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return "guest"
}
