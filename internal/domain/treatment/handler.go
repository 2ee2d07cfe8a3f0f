package treatment

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/db"
	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/internal/platform/workflow"
	"github.com/abaranti/abaranti/pkg/pagination"
)

type Handler struct {
	svc    *Service
	record *workflow.Flow
}

func NewHandler(svc *Service, engine *workflow.Engine) *Handler {
	return &Handler{
		svc: svc,
		record: workflow.NewFlow(engine, workflow.FlowConfig{
			Definition: NewDefinition(svc.patients, svc.medicines, svc.treatments),
			Mode:       pending.ModeCreate,
			Path:       "/treatments/new",
			DonePath: func(_ echo.Context, ch *pending.Change) string {
				return "/patients/" + workflow.Values(ch.Fields).String("patient_id") + "/treatments"
			},
			DoneMessage: func(ch *pending.Change) string {
				return "Treatment recorded for patient " + workflow.Values(ch.Fields).String("patient_id") + "."
			},
			Prefill: func(c echo.Context) map[string]string {
				return map[string]string{
					"patient_id":  c.QueryParam("patient_id"),
					"medicine_id": c.QueryParam("medicine_id"),
				}
			},
		}),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	doctor := auth.RequireRole(auth.RoleDoctor)

	g.GET("/medicines", h.ListMedicines, doctor)
	g.GET("/patients/:id/treatments", h.History, doctor)
	h.record.RegisterRoutes(g, doctor)
}

func (h *Handler) ListMedicines(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMedicines(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "medicine_list", MedicineListView{
		Items: items,
		Pager: pg.NewPager("/medicines", c.QueryParams(), len(items), total),
	})
}

// History lists the treatments given to one patient, newest first.
func (h *Handler) History(c echo.Context) error {
	pg := pagination.FromContext(c)
	id := c.Param("id")

	p, items, total, err := h.svc.History(c.Request().Context(), id, pg.Limit, pg.Offset)
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient "+id+" not found")
	}
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "treatment_history", HistoryView{
		Patient: p,
		Items:   items,
		Pager:   pg.NewPager("/patients/"+id+"/treatments", c.QueryParams(), len(items), total),
	})
}
