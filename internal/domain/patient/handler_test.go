package patient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/internal/platform/workflow"
)

func newTestHandler(repo *mockRepo) *Handler {
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC) }
	return NewHandler(svc, workflow.NewEngine(pending.NewMemoryStore(0), zerolog.Nop(), nil))
}

func seedPatients() *mockRepo {
	repo := newMockRepo()
	repo.patients["P0001"] = &Patient{PatientID: "P0001", LastName: "Yamada", FirstName: "Taro", InsuranceExp: date("2026-10-18")}
	repo.patients["P0002"] = &Patient{PatientID: "P0002", LastName: "Tanaka", FirstName: "Hana", InsuranceExp: date("2026-10-19")}
	repo.patients["P0003"] = &Patient{PatientID: "P0003", LastName: "Yamamoto", FirstName: "Ken", InsuranceExp: date("2030-01-01")}
	return repo
}

func get(h func(echo.Context) error, target string, role auth.Role) (*captureRenderer, *httptest.ResponseRecorder, error) {
	e := echo.New()
	r := &captureRenderer{}
	e.Renderer = r
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithSession(req.Context(), &auth.Session{ID: "s", EmpID: "E", Role: role}))
	rec := httptest.NewRecorder()
	err := h(e.NewContext(req, rec))
	return r, rec, err
}

func TestListPatients_SearchByName(t *testing.T) {
	h := newTestHandler(seedPatients())

	r, rec, err := get(h.ListPatients, "/patients?name=Yama", auth.RoleDoctor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || r.name != "patient_list" {
		t.Fatalf("expected patient_list, got %d %q", rec.Code, r.name)
	}
	view := r.data.(ListView)
	if len(view.Items) != 2 {
		t.Errorf("expected 2 matches, got %d", len(view.Items))
	}
	if view.Name != "Yama" {
		t.Errorf("expected the search term to be echoed, got %q", view.Name)
	}
	if view.CanEdit || !view.CanTreat {
		t.Error("doctors see treatment links only")
	}
}

func TestListExpired(t *testing.T) {
	h := newTestHandler(seedPatients())

	r, _, err := get(h.ListExpired, "/patients/expired", auth.RoleReception)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view := r.data.(ListView)
	if len(view.Items) != 1 || view.Items[0].PatientID != "P0001" {
		t.Errorf("expected only P0001 to be expired, got %+v", view.Items)
	}
	if !view.Expired || !view.CanEdit {
		t.Errorf("unexpected view flags %+v", view)
	}
}

func TestPatient_InsuranceExpired(t *testing.T) {
	now := time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)
	p := &Patient{InsuranceExp: date("2026-10-19")}
	if p.InsuranceExpired(now) {
		t.Error("insurance expiring today is still valid")
	}
	p.InsuranceExp = date("2026-10-18")
	if !p.InsuranceExpired(now) {
		t.Error("expected expired insurance")
	}
}

func TestRegisterRoutes(t *testing.T) {
	h := newTestHandler(newMockRepo())
	e := echo.New()
	h.RegisterRoutes(e.Group(""))

	routes := map[string]bool{}
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /patients", "GET /patients/expired",
		"GET /patients/new", "POST /patients/new/confirm",
		"GET /patients/:id/insurance", "POST /patients/:id/insurance/confirm",
	} {
		if !routes[want] {
			t.Errorf("missing route %s", want)
		}
	}
}
