package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks the session holds one of the specified roles.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := SessionFromContext(c.Request().Context())
			if sess == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "login required")
			}
			for _, required := range roles {
				if sess.Role == required {
					return next(c)
				}
			}
			names := make([]string, len(roles))
			for i, r := range roles {
				names[i] = r.String()
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
		}
	}
}

// MenuPath returns the landing menu for a role, or "" for a role that has
// no menu.
func MenuPath(role Role) string {
	switch role {
	case RoleReception:
		return "/menu/reception"
	case RoleDoctor:
		return "/menu/doctor"
	default:
		return ""
	}
}
