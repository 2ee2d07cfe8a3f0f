package render

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

const flashCookie = "abaranti_flash"

// maxFlashes bounds the cookie size.
const maxFlashes = 5

type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashInfo    FlashLevel = "info"
	FlashError   FlashLevel = "error"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Level   FlashLevel `json:"l"`
	Message string     `json:"m"`
}

// SetFlash queues a notice for the next page, typically across a redirect.
func SetFlash(c echo.Context, level FlashLevel, message string) {
	flashes := append(pendingFlashes(c), Flash{Level: level, Message: message})
	if len(flashes) > maxFlashes {
		flashes = flashes[len(flashes)-maxFlashes:]
	}
	c.Set(flashCookie, flashes)

	data, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlashes returns queued notices and clears the cookie.
func PopFlashes(c echo.Context) []Flash {
	flashes := pendingFlashes(c)
	if len(flashes) == 0 {
		return nil
	}
	c.Set(flashCookie, []Flash(nil))
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return flashes
}

// pendingFlashes prefers flashes set during this request over the cookie
// sent with it.
func pendingFlashes(c echo.Context) []Flash {
	if v := c.Get(flashCookie); v != nil {
		flashes, _ := v.([]Flash)
		return flashes
	}
	cookie, err := c.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil
	}
	return flashes
}
