package treatment

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abaranti/abaranti/internal/domain/patient"
	"github.com/abaranti/abaranti/internal/platform/db"
)

type mockMedicineRepo struct {
	medicines map[string]*Medicine
}

func newMockMedicineRepo() *mockMedicineRepo {
	return &mockMedicineRepo{medicines: map[string]*Medicine{
		"M0001": {MedicineID: "M0001", Name: "Acetaminophen 200mg", Unit: "tab"},
		"M0005": {MedicineID: "M0005", Name: "Carbocisteine syrup", Unit: "mL"},
	}}
}

func (m *mockMedicineRepo) List(_ context.Context, limit, offset int) ([]*Medicine, int, error) {
	var items []*Medicine
	for _, med := range m.medicines {
		items = append(items, med)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].MedicineID < items[j].MedicineID })
	total := len(items)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return items[offset:end], total, nil
}

func (m *mockMedicineRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := m.medicines[id]
	return ok, nil
}

type mockTreatmentRepo struct {
	medicines  *mockMedicineRepo
	treatments []*Treatment
	clock      time.Time
	err        error
}

func (m *mockTreatmentRepo) Create(_ context.Context, t *Treatment) error {
	if m.err != nil {
		return m.err
	}
	m.clock = m.clock.Add(time.Minute)
	t.ID = int64(len(m.treatments) + 1)
	t.Date = m.clock
	m.treatments = append(m.treatments, t)
	return nil
}

func (m *mockTreatmentRepo) ListByPatient(_ context.Context, patientID string, limit, offset int) ([]*Treatment, int, error) {
	var items []*Treatment
	for i := len(m.treatments) - 1; i >= 0; i-- {
		t := *m.treatments[i]
		if t.PatientID != patientID {
			continue
		}
		if med, ok := m.medicines.medicines[t.MedicineID]; ok {
			t.MedicineName, t.Unit = med.Name, med.Unit
		}
		items = append(items, &t)
	}
	total := len(items)
	if offset >= total {
		return nil, total, nil
	}
	return items[offset:min(offset+limit, total)], total, nil
}

// mockPatients satisfies patient.Repository with a fixed set of patients.
type mockPatients map[string]*patient.Patient

func (m mockPatients) Create(context.Context, *patient.Patient) error { return db.ErrDuplicate }

func (m mockPatients) GetByID(_ context.Context, id string) (*patient.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p, nil
}

func (m mockPatients) Exists(_ context.Context, id string) (bool, error) {
	_, ok := m[id]
	return ok, nil
}

func (m mockPatients) UpdateInsurance(context.Context, string, string, time.Time) error {
	return db.ErrNotFound
}

func (m mockPatients) Search(context.Context, patient.Filter, int, int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}

type fixture struct {
	medicines  *mockMedicineRepo
	treatments *mockTreatmentRepo
	patients   mockPatients
	svc        *Service
}

func newFixture() *fixture {
	meds := newMockMedicineRepo()
	f := &fixture{
		medicines:  meds,
		treatments: &mockTreatmentRepo{medicines: meds, clock: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)},
		patients: mockPatients{
			"P0001": {PatientID: "P0001", LastName: "Yamada", FirstName: "Taro"},
			"P0002": {PatientID: "P0002", LastName: "Tanaka", FirstName: "Hana"},
		},
	}
	f.svc = NewService(f.medicines, f.treatments, f.patients)
	return f
}

type captureRenderer struct {
	name string
	data any
}

func (r *captureRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	r.name = name
	r.data = data
	_, err := io.WriteString(w, name)
	return err
}
