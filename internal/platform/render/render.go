// Package render turns handler view models into HTML pages.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abaranti/abaranti/internal/platform/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

// Views lists every page template. Each one defines "title" and "content"
// and is rendered inside layout.html.
var Views = []string{
	"login",
	"error",
	"menu_reception",
	"menu_doctor",
	"form",
	"confirm",
	"employee_list",
	"hospital_list",
	"supplier_list",
	"patient_list",
	"medicine_list",
	"treatment_history",
}

// Page is the value every template receives.
type Page struct {
	User    *auth.Session
	Flashes []Flash
	CSRF    string
	Data    any
}

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	views map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"datetime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"upper": strings.ToUpper,
}

func New() (*Renderer, error) {
	return NewFromFS(templateFS, "templates")
}

// NewFromFS parses layout.html plus one file per view from dir in fsys.
func NewFromFS(fsys fs.FS, dir string) (*Renderer, error) {
	r := &Renderer{views: make(map[string]*template.Template, len(Views))}
	for _, name := range Views {
		t, err := template.New(name).Funcs(funcs).ParseFS(fsys,
			dir+"/layout.html", dir+"/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", name, err)
		}
		r.views[name] = t
	}
	return r, nil
}

// Render wraps data in a Page with the current user, pending flash
// messages and the CSRF token, then executes the layout.
func (r *Renderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	t, ok := r.views[name]
	if !ok {
		return fmt.Errorf("render: unknown view %q", name)
	}
	page := Page{Data: data}
	if c != nil {
		page.User = auth.SessionFromContext(c.Request().Context())
		page.Flashes = PopFlashes(c)
		page.CSRF, _ = c.Get("csrf").(string)
	}
	return t.ExecuteTemplate(w, "layout", page)
}
