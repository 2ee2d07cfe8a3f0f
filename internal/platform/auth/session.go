package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const SessionKey contextKey = "session"

// DefaultCookieName is the cookie carrying the signed session token.
const DefaultCookieName = "abaranti_session"

var ErrNoSession = errors.New("no session")

// Role is the staff role stored on the employee record.
type Role int

const (
	RoleReception Role = 0
	RoleDoctor    Role = 1
)

func (r Role) String() string {
	switch r {
	case RoleReception:
		return "reception"
	case RoleDoctor:
		return "doctor"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Session is the authenticated staff member attached to a request. ID is
// the opaque session identifier that keys pending changes.
type Session struct {
	ID        string
	EmpID     string
	Name      string
	Role      Role
	ExpiresAt time.Time
}

type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role int    `json:"role"`
}

type SessionConfig struct {
	SigningKey []byte
	TTL        time.Duration
	Secure     bool
	CookieName string
}

// SessionManager issues and verifies HS256-signed session cookies.
type SessionManager struct {
	cfg SessionConfig
	now func() time.Time
}

func NewSessionManager(cfg SessionConfig) *SessionManager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 8 * time.Hour
	}
	return &SessionManager{cfg: cfg, now: time.Now}
}

func (m *SessionManager) CookieName() string {
	return m.cfg.CookieName
}

// Issue starts a new session for the employee and writes the cookie.
func (m *SessionManager) Issue(c echo.Context, empID, name string, role Role) (*Session, error) {
	now := m.now()
	sess := &Session{
		ID:        uuid.NewString(),
		EmpID:     empID,
		Name:      name,
		Role:      role,
		ExpiresAt: now.Add(m.cfg.TTL),
	}
	token, err := m.Sign(sess, now)
	if err != nil {
		return nil, err
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

func (m *SessionManager) Sign(sess *Session, issuedAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.EmpID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		Name: sess.Name,
		Role: int(sess.Role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies a session token and returns the session it carries.
func (m *SessionManager) Parse(tokenStr string) (*Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.cfg.SigningKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, ErrNoSession
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrNoSession
	}

	sess := &Session{
		ID:    claims.ID,
		EmpID: claims.Subject,
		Name:  claims.Name,
		Role:  Role(claims.Role),
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// Destroy expires the session cookie.
func (m *SessionManager) Destroy(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware attaches the session from a valid cookie to the request
// context. Requests without one pass through untouched.
func (m *SessionManager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(m.cfg.CookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}
			sess, err := m.Parse(cookie.Value)
			if err != nil {
				m.Destroy(c)
				return next(c)
			}
			c.Set("user_id", sess.EmpID)
			c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), sess)))
			return next(c)
		}
	}
}

// RequireSession redirects anonymous requests to the login page. Public
// paths (see AuthSkipper) are let through.
func RequireSession(loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if AuthSkipper(c) {
				return next(c)
			}
			if SessionFromContext(c.Request().Context()) == nil {
				return c.Redirect(http.StatusSeeOther, loginPath)
			}
			return next(c)
		}
	}
}

func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(SessionKey).(*Session)
	return sess
}
