package auth

import (
	"github.com/labstack/echo/v4"
)

// infraPaths are machine endpoints: no session and no CSRF token.
var infraPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// AuthSkipper returns true for requests whose route should skip the
// session requirement: infrastructure endpoints and the login form itself.
func AuthSkipper(c echo.Context) bool {
	p := c.Path()
	return infraPaths[p] || p == "/" || p == "/login"
}

// IsInfraPath reports whether path is an infrastructure endpoint.
func IsInfraPath(path string) bool {
	return infraPaths[path]
}
