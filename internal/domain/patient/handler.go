package patient

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/internal/platform/workflow"
	"github.com/abaranti/abaranti/pkg/pagination"
)

type Handler struct {
	svc *Service

	register  *workflow.Flow
	insurance *workflow.Flow
}

func NewHandler(svc *Service, engine *workflow.Engine) *Handler {
	toList := func(echo.Context, *pending.Change) string { return "/patients" }
	return &Handler{
		svc: svc,
		register: workflow.NewFlow(engine, workflow.FlowConfig{
			Definition: NewDefinition(svc.repo),
			Mode:       pending.ModeCreate,
			Path:       "/patients/new",
			DonePath:   toList,
			DoneMessage: func(ch *pending.Change) string {
				return "Patient " + workflow.Values(ch.Fields).String("patient_id") + " registered."
			},
		}),
		insurance: workflow.NewFlow(engine, workflow.FlowConfig{
			Definition:  NewInsuranceDefinition(svc.repo),
			Mode:        pending.ModeUpdate,
			Path:        "/patients/:id/insurance",
			DonePath:    toList,
			DoneMessage: func(ch *pending.Change) string { return "Insurance of patient " + ch.TargetID + " updated." },
			CancelPath:  func(echo.Context) string { return "/patients" },
		}),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	reception := auth.RequireRole(auth.RoleReception)
	staff := auth.RequireRole(auth.RoleReception, auth.RoleDoctor)

	g.GET("/patients", h.ListPatients, staff)
	g.GET("/patients/expired", h.ListExpired, reception)
	h.register.RegisterRoutes(g, reception)
	h.insurance.RegisterRoutes(g, reception)
}

func (h *Handler) listView(c echo.Context, title string) ListView {
	view := ListView{Title: title, Today: h.svc.now()}
	if sess := auth.SessionFromContext(c.Request().Context()); sess != nil {
		view.CanEdit = sess.Role == auth.RoleReception
		view.CanTreat = sess.Role == auth.RoleDoctor
	}
	return view
}

// ListPatients lists patients, optionally narrowed by a name substring.
func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	view := h.listView(c, "Patients")
	view.Name = strings.TrimSpace(c.QueryParam("name"))

	items, total, err := h.svc.Search(c.Request().Context(), view.Name, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	view.Items = items
	view.Pager = pg.NewPager("/patients", c.QueryParams(), len(items), total)
	return c.Render(http.StatusOK, "patient_list", view)
}

func (h *Handler) ListExpired(c echo.Context) error {
	pg := pagination.FromContext(c)
	view := h.listView(c, "Patients with expired insurance")
	view.Expired = true

	items, total, err := h.svc.ListExpired(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	view.Items = items
	view.Pager = pg.NewPager("/patients/expired", c.QueryParams(), len(items), total)
	return c.Render(http.StatusOK, "patient_list", view)
}
