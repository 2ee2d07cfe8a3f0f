package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abaranti/abaranti/internal/domain/employee"
	"github.com/abaranti/abaranti/internal/domain/partner"
	"github.com/abaranti/abaranti/internal/domain/patient"
	"github.com/abaranti/abaranti/internal/domain/treatment"
	"github.com/abaranti/abaranti/internal/platform/db"
)

// memoryDB backs every repository of one acceptance scenario.
type memoryDB struct {
	mu         sync.Mutex
	employees  map[string]*employee.Employee
	hospitals  map[string]*partner.Hospital
	suppliers  map[string]*partner.Supplier
	patients   map[string]*patient.Patient
	medicines  map[string]*treatment.Medicine
	treatments []*treatment.Treatment
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		employees: make(map[string]*employee.Employee),
		hospitals: make(map[string]*partner.Hospital),
		suppliers: make(map[string]*partner.Supplier),
		patients:  make(map[string]*patient.Patient),
		medicines: map[string]*treatment.Medicine{
			"M0001": {MedicineID: "M0001", Name: "Acetaminophen 200mg", Unit: "tab"},
		},
	}
}

func (m *memoryDB) repositories() Repositories {
	return Repositories{
		Employees:  memEmployees{m},
		Hospitals:  memHospitals{m},
		Suppliers:  memSuppliers{m},
		Patients:   memPatients{m},
		Medicines:  memMedicines{m},
		Treatments: memTreatments{m},
	}
}

func window[T any](items []T, limit, offset int) ([]T, int, error) {
	total := len(items)
	if offset >= total {
		return nil, total, nil
	}
	return items[offset:min(offset+limit, total)], total, nil
}

func sortedValues[T any](m map[string]*T) []*T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

type memEmployees struct{ m *memoryDB }

func (r memEmployees) Create(_ context.Context, e *employee.Employee) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.employees[e.EmpID]; ok {
		return db.ErrDuplicate
	}
	cp := *e
	r.m.employees[e.EmpID] = &cp
	return nil
}

func (r memEmployees) GetByID(_ context.Context, id string) (*employee.Employee, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.employees[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r memEmployees) Exists(_ context.Context, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.employees[id]
	return ok, nil
}

func (r memEmployees) UpdateName(_ context.Context, id, last, first string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.employees[id]
	if !ok {
		return db.ErrNotFound
	}
	e.LastName, e.FirstName = last, first
	return nil
}

func (r memEmployees) UpdatePassword(_ context.Context, id, hash string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.employees[id]
	if !ok {
		return db.ErrNotFound
	}
	e.PasswordHash = hash
	return nil
}

func (r memEmployees) List(_ context.Context, limit, offset int) ([]*employee.Employee, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return window(sortedValues(r.m.employees), limit, offset)
}

type memHospitals struct{ m *memoryDB }

func (r memHospitals) Create(_ context.Context, h *partner.Hospital) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.hospitals[h.HospitalID]; ok {
		return db.ErrDuplicate
	}
	cp := *h
	r.m.hospitals[h.HospitalID] = &cp
	return nil
}

func (r memHospitals) GetByID(_ context.Context, id string) (*partner.Hospital, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	h, ok := r.m.hospitals[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (r memHospitals) Exists(_ context.Context, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.hospitals[id]
	return ok, nil
}

func (r memHospitals) UpdatePhone(_ context.Context, id, phone string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	h, ok := r.m.hospitals[id]
	if !ok {
		return db.ErrNotFound
	}
	h.Phone = phone
	return nil
}

func (r memHospitals) Search(_ context.Context, f partner.HospitalFilter, limit, offset int) ([]*partner.Hospital, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*partner.Hospital
	for _, h := range sortedValues(r.m.hospitals) {
		if f.Address != "" && !strings.Contains(strings.ToLower(h.Address), strings.ToLower(f.Address)) {
			continue
		}
		if f.MinCapital != nil && h.Capital < *f.MinCapital {
			continue
		}
		out = append(out, h)
	}
	return window(out, limit, offset)
}

type memSuppliers struct{ m *memoryDB }

func (r memSuppliers) Create(_ context.Context, s *partner.Supplier) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.suppliers[s.SupplierID]; ok {
		return db.ErrDuplicate
	}
	cp := *s
	r.m.suppliers[s.SupplierID] = &cp
	return nil
}

func (r memSuppliers) Exists(_ context.Context, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.suppliers[id]
	return ok, nil
}

func (r memSuppliers) Search(_ context.Context, f partner.SupplierFilter, limit, offset int) ([]*partner.Supplier, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*partner.Supplier
	for _, s := range sortedValues(r.m.suppliers) {
		if f.MinCapital != nil && s.Capital < *f.MinCapital {
			continue
		}
		out = append(out, s)
	}
	return window(out, limit, offset)
}

type memPatients struct{ m *memoryDB }

func (r memPatients) Create(_ context.Context, p *patient.Patient) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.patients[p.PatientID]; ok {
		return db.ErrDuplicate
	}
	cp := *p
	r.m.patients[p.PatientID] = &cp
	return nil
}

func (r memPatients) GetByID(_ context.Context, id string) (*patient.Patient, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.patients[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memPatients) Exists(_ context.Context, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.patients[id]
	return ok, nil
}

func (r memPatients) UpdateInsurance(_ context.Context, id, number string, exp time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.patients[id]
	if !ok {
		return db.ErrNotFound
	}
	p.InsuranceNumber, p.InsuranceExp = number, exp
	return nil
}

func (r memPatients) Search(_ context.Context, f patient.Filter, limit, offset int) ([]*patient.Patient, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*patient.Patient
	for _, p := range sortedValues(r.m.patients) {
		if f.Name != "" && !strings.Contains(p.LastName+" "+p.FirstName, f.Name) {
			continue
		}
		if f.ExpiredBefore != nil && !p.InsuranceExp.Before(*f.ExpiredBefore) {
			continue
		}
		out = append(out, p)
	}
	return window(out, limit, offset)
}

type memMedicines struct{ m *memoryDB }

func (r memMedicines) List(_ context.Context, limit, offset int) ([]*treatment.Medicine, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return window(sortedValues(r.m.medicines), limit, offset)
}

func (r memMedicines) Exists(_ context.Context, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.medicines[id]
	return ok, nil
}

type memTreatments struct{ m *memoryDB }

func (r memTreatments) Create(_ context.Context, t *treatment.Treatment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t.ID = int64(len(r.m.treatments) + 1)
	t.Date = time.Now()
	cp := *t
	r.m.treatments = append(r.m.treatments, &cp)
	return nil
}

func (r memTreatments) ListByPatient(_ context.Context, patientID string, limit, offset int) ([]*treatment.Treatment, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*treatment.Treatment
	for i := len(r.m.treatments) - 1; i >= 0; i-- {
		if t := r.m.treatments[i]; t.PatientID == patientID {
			cp := *t
			if med, ok := r.m.medicines[t.MedicineID]; ok {
				cp.MedicineName, cp.Unit = med.Name, med.Unit
			}
			out = append(out, &cp)
		}
	}
	return window(out, limit, offset)
}
