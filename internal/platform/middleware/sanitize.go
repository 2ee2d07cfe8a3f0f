package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// maxHeaderValueSize is the maximum allowed size for any single header value.
const maxHeaderValueSize = 8192

// Sanitize rejects requests carrying path traversal, NUL bytes, or header
// injection. Form values are checked too since every write in this
// application is a form post.
func Sanitize(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			rawPath := req.URL.RawPath
			if rawPath == "" {
				rawPath = path
			}

			if containsPathTraversal(path) || containsPathTraversal(rawPath) {
				return reject(logger, c, "path traversal detected")
			}
			if containsNullByte(path) || containsNullByte(rawPath) {
				return reject(logger, c, "null byte in path")
			}

			for name, values := range req.Header {
				for _, v := range values {
					if len(v) > maxHeaderValueSize {
						return reject(logger, c, "header value too large: "+name)
					}
					if strings.ContainsAny(v, "\r\n") {
						return reject(logger, c, "header injection detected: "+name)
					}
				}
			}

			for key, values := range req.URL.Query() {
				for _, v := range values {
					if containsNullByte(key) || containsNullByte(v) {
						return reject(logger, c, "null byte in query parameter")
					}
				}
			}

			if req.Method == http.MethodPost {
				form, err := c.FormParams()
				if err == nil {
					for key, values := range form {
						for _, v := range values {
							if strings.ContainsRune(key, '\x00') || strings.ContainsRune(v, '\x00') {
								return reject(logger, c, "null byte in form field")
							}
						}
					}
				}
			}

			return next(c)
		}
	}
}

func reject(logger zerolog.Logger, c echo.Context, reason string) error {
	rid, _ := c.Get("request_id").(string)
	logger.Warn().
		Str("request_id", rid).
		Str("remote_ip", c.RealIP()).
		Str("reason", reason).
		Msg("request rejected")
	return echo.NewHTTPError(http.StatusBadRequest, "bad request")
}

func containsPathTraversal(s string) bool {
	if strings.Contains(s, "..") {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func containsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}
