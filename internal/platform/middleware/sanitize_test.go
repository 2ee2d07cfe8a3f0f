package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func runSanitize(t *testing.T, req *http.Request) (called bool, err error) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	h := Sanitize(zerolog.Nop())(func(c echo.Context) error {
		called = true
		return nil
	})
	return called, h(c)
}

func expectBadRequest(t *testing.T, called bool, err error) {
	t.Helper()
	if called {
		t.Error("handler should not run")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestSanitize_AllowsCleanRequest(t *testing.T) {
	form := url.Values{"hospital_name": {"Central Hospital"}, "capital": {"1000"}}
	req := httptest.NewRequest(http.MethodPost, "/hospitals/new", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	called, err := runSanitize(t, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to run")
	}
}

func TestSanitize_PathTraversal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/patients/%2e%2e/secret", nil)
	called, err := runSanitize(t, req)
	expectBadRequest(t, called, err)
}

func TestSanitize_NullByteInQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/patients?name=a%00b", nil)
	called, err := runSanitize(t, req)
	expectBadRequest(t, called, err)
}

func TestSanitize_NullByteInForm(t *testing.T) {
	form := url.Values{"last_name": {"Sato\x00"}}
	req := httptest.NewRequest(http.MethodPost, "/patients/new", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	called, err := runSanitize(t, req)
	expectBadRequest(t, called, err)
}

func TestSanitize_OversizedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Big", strings.Repeat("a", maxHeaderValueSize+1))
	called, err := runSanitize(t, req)
	expectBadRequest(t, called, err)
}
