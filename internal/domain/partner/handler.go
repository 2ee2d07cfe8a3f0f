package partner

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/internal/platform/workflow"
	"github.com/abaranti/abaranti/pkg/pagination"
)

// minCapital parses the capital search filter with the same rules as the
// capital input.
var minCapital = workflow.Field{Name: "min_capital", Label: "Minimum capital", Type: workflow.TypeInt, Min: workflow.Int64(0)}

type Handler struct {
	svc *Service

	registerHospital *workflow.Flow
	changePhone      *workflow.Flow
	registerSupplier *workflow.Flow
}

func NewHandler(svc *Service, engine *workflow.Engine) *Handler {
	hospitals := NewHospitalDefinition(svc.hospitals)
	toHospitals := func(echo.Context, *pending.Change) string { return "/hospitals" }

	return &Handler{
		svc: svc,
		registerHospital: workflow.NewFlow(engine, workflow.FlowConfig{
			Definition: hospitals,
			Mode:       pending.ModeCreate,
			Path:       "/hospitals/new",
			DonePath:   toHospitals,
			DoneMessage: func(ch *pending.Change) string {
				return "Hospital " + workflow.Values(ch.Fields).String("hospital_id") + " registered."
			},
		}),
		changePhone: workflow.NewFlow(engine, workflow.FlowConfig{
			Definition:  hospitals,
			Mode:        pending.ModeUpdate,
			Path:        "/hospitals/:id/phone",
			DonePath:    toHospitals,
			DoneMessage: func(ch *pending.Change) string { return "Phone number of " + ch.TargetID + " updated." },
			CancelPath:  func(echo.Context) string { return "/hospitals" },
		}),
		registerSupplier: workflow.NewFlow(engine, workflow.FlowConfig{
			Definition: NewSupplierDefinition(svc.suppliers),
			Mode:       pending.ModeCreate,
			Path:       "/suppliers/new",
			DonePath:   func(echo.Context, *pending.Change) string { return "/suppliers" },
			DoneMessage: func(ch *pending.Change) string {
				return "Supplier " + workflow.Values(ch.Fields).String("supplier_id") + " registered."
			},
		}),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	reception := auth.RequireRole(auth.RoleReception)

	g.GET("/hospitals", h.ListHospitals, reception)
	h.registerHospital.RegisterRoutes(g, reception)
	h.changePhone.RegisterRoutes(g, reception)

	g.GET("/suppliers", h.ListSuppliers, reception)
	h.registerSupplier.RegisterRoutes(g, reception)
}

// parseMinCapital returns nil for an empty filter.
func parseMinCapital(raw string) (*int64, string) {
	v, ferr := minCapital.Parse(raw)
	if ferr != nil {
		return nil, ferr.Message
	}
	if n, ok := v.(int64); ok {
		return &n, ""
	}
	return nil, ""
}

// ListHospitals lists partner hospitals, optionally narrowed by an address
// substring and a minimum capital.
func (h *Handler) ListHospitals(c echo.Context) error {
	pg := pagination.FromContext(c)
	view := HospitalListView{
		Address:    strings.TrimSpace(c.QueryParam("address")),
		MinCapital: strings.TrimSpace(c.QueryParam("min_capital")),
	}
	filter := HospitalFilter{Address: view.Address}
	filter.MinCapital, view.Error = parseMinCapital(view.MinCapital)
	if view.Error != "" {
		return c.Render(http.StatusBadRequest, "hospital_list", view)
	}

	items, total, err := h.svc.SearchHospitals(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	view.Items = items
	view.Pager = pg.NewPager("/hospitals", c.QueryParams(), len(items), total)
	return c.Render(http.StatusOK, "hospital_list", view)
}

func (h *Handler) ListSuppliers(c echo.Context) error {
	pg := pagination.FromContext(c)
	view := SupplierListView{MinCapital: strings.TrimSpace(c.QueryParam("min_capital"))}
	var filter SupplierFilter
	filter.MinCapital, view.Error = parseMinCapital(view.MinCapital)
	if view.Error != "" {
		return c.Render(http.StatusBadRequest, "supplier_list", view)
	}

	items, total, err := h.svc.SearchSuppliers(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	view.Items = items
	view.Pager = pg.NewPager("/suppliers", c.QueryParams(), len(items), total)
	return c.Render(http.StatusOK, "supplier_list", view)
}
