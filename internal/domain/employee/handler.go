package employee

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/internal/platform/render"
	"github.com/abaranti/abaranti/internal/platform/workflow"
	"github.com/abaranti/abaranti/pkg/pagination"
)

// LoginView is the data of the login view.
type LoginView struct {
	UserID string
	Error  string
}

type Handler struct {
	svc        *Service
	sessions   *auth.SessionManager
	store      pending.Store
	logger     zerolog.Logger
	loginGuard []echo.MiddlewareFunc

	register *workflow.Flow
	rename   *workflow.Flow
	password *workflow.Flow
}

// NewHandler wires the staff pages. loginGuard runs in front of POST /login,
// typically a rate limiter.
func NewHandler(svc *Service, engine *workflow.Engine, sessions *auth.SessionManager, store pending.Store, logger zerolog.Logger, loginGuard ...echo.MiddlewareFunc) *Handler {
	def := NewDefinition(svc.repo)
	toList := func(echo.Context, *pending.Change) string { return "/employees" }

	return &Handler{
		svc:        svc,
		sessions:   sessions,
		store:      store,
		logger:     logger.With().Str("component", "employee").Logger(),
		loginGuard: loginGuard,
		register: workflow.NewFlow(engine, workflow.FlowConfig{
			Definition: def,
			Mode:       pending.ModeCreate,
			Path:       "/employees/new",
			DonePath:   toList,
			DoneMessage: func(ch *pending.Change) string {
				return "Employee " + workflow.Values(ch.Fields).String("emp_id") + " registered."
			},
		}),
		rename: workflow.NewFlow(engine, workflow.FlowConfig{
			Definition:  def,
			Mode:        pending.ModeUpdate,
			Path:        "/employees/:id/edit",
			DonePath:    toList,
			DoneMessage: func(ch *pending.Change) string { return "Employee " + ch.TargetID + " updated." },
			CancelPath:  func(echo.Context) string { return "/employees" },
		}),
		password: workflow.NewFlow(engine, workflow.FlowConfig{
			Definition: NewPasswordDefinition(svc.repo),
			Mode:       pending.ModeUpdate,
			Path:       "/password",
			TargetID: func(c echo.Context) string {
				if sess := auth.SessionFromContext(c.Request().Context()); sess != nil {
					return sess.EmpID
				}
				return ""
			},
			DoneMessage: func(*pending.Change) string { return "Your password was changed." },
		}),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	reception := auth.RequireRole(auth.RoleReception)
	doctor := auth.RequireRole(auth.RoleDoctor)

	g.GET("/", h.ShowLogin)
	g.GET("/login", h.ShowLogin)
	g.POST("/login", h.Login, h.loginGuard...)
	g.POST("/logout", h.Logout)

	g.GET("/menu/reception", h.ReceptionMenu, reception)
	g.GET("/menu/doctor", h.DoctorMenu, doctor)

	g.GET("/employees", h.ListEmployees, reception)
	h.register.RegisterRoutes(g, reception)
	h.rename.RegisterRoutes(g, reception)
	h.password.RegisterRoutes(g, auth.RequireRole(auth.RoleReception, auth.RoleDoctor))
}

func (h *Handler) ShowLogin(c echo.Context) error {
	if sess := auth.SessionFromContext(c.Request().Context()); sess != nil {
		if p := auth.MenuPath(sess.Role); p != "" {
			return c.Redirect(http.StatusSeeOther, p)
		}
	}
	return c.Render(http.StatusOK, "login", LoginView{})
}

// Login checks the credentials and routes the user to their role's menu.
// Every failure renders the same message.
func (h *Handler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	empID := strings.TrimSpace(c.FormValue("user_id"))
	password := c.FormValue("password")

	e, err := h.svc.Authenticate(ctx, empID, password)
	if errors.Is(err, auth.ErrAuthFailure) {
		return c.Render(http.StatusUnauthorized, "login", LoginView{UserID: empID, Error: auth.AuthFailureMessage})
	}
	if err != nil {
		return err
	}

	if prev := auth.SessionFromContext(ctx); prev != nil {
		h.clearPending(c, prev.ID)
	}
	if _, err := h.sessions.Issue(c, e.EmpID, e.FullName(), e.Role); err != nil {
		return err
	}
	h.logger.Info().Str("emp_id", e.EmpID).Str("role", e.Role.String()).Msg("login")
	return c.Redirect(http.StatusSeeOther, auth.MenuPath(e.Role))
}

// Logout drops every pending change of the session and the session cookie.
func (h *Handler) Logout(c echo.Context) error {
	if sess := auth.SessionFromContext(c.Request().Context()); sess != nil {
		h.clearPending(c, sess.ID)
		h.logger.Info().Str("emp_id", sess.EmpID).Msg("logout")
	}
	h.sessions.Destroy(c)
	render.SetFlash(c, render.FlashInfo, "You have been logged out.")
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *Handler) clearPending(c echo.Context, sessionID string) {
	if err := h.store.ClearSession(c.Request().Context(), sessionID); err != nil {
		h.logger.Warn().Err(err).Msg("clear pending changes of session")
	}
}

func (h *Handler) ReceptionMenu(c echo.Context) error {
	return c.Render(http.StatusOK, "menu_reception", nil)
}

func (h *Handler) DoctorMenu(c echo.Context) error {
	return c.Render(http.StatusOK, "menu_doctor", nil)
}

func (h *Handler) ListEmployees(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "employee_list", ListView{
		Items: items,
		Pager: pg.NewPager("/employees", c.QueryParams(), len(items), total),
	})
}
