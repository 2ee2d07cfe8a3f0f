package partner

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/abaranti/abaranti/internal/platform/db"
)

type mockHospitalRepo struct {
	hospitals map[string]*Hospital
}

func newMockHospitalRepo() *mockHospitalRepo {
	return &mockHospitalRepo{hospitals: make(map[string]*Hospital)}
}

func (m *mockHospitalRepo) Create(_ context.Context, h *Hospital) error {
	if _, ok := m.hospitals[h.HospitalID]; ok {
		return db.ErrDuplicate
	}
	m.hospitals[h.HospitalID] = h
	return nil
}

func (m *mockHospitalRepo) GetByID(_ context.Context, id string) (*Hospital, error) {
	h, ok := m.hospitals[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return h, nil
}

func (m *mockHospitalRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := m.hospitals[id]
	return ok, nil
}

func (m *mockHospitalRepo) UpdatePhone(_ context.Context, id, phone string) error {
	h, ok := m.hospitals[id]
	if !ok {
		return db.ErrNotFound
	}
	h.Phone = phone
	return nil
}

func (m *mockHospitalRepo) Search(_ context.Context, f HospitalFilter, limit, offset int) ([]*Hospital, int, error) {
	var result []*Hospital
	for _, h := range m.hospitals {
		if f.Address != "" && !strings.Contains(strings.ToLower(h.Address), strings.ToLower(f.Address)) {
			continue
		}
		if f.MinCapital != nil && h.Capital < *f.MinCapital {
			continue
		}
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].HospitalID < result[j].HospitalID })
	return page(result, limit, offset)
}

type mockSupplierRepo struct {
	suppliers map[string]*Supplier
}

func newMockSupplierRepo() *mockSupplierRepo {
	return &mockSupplierRepo{suppliers: make(map[string]*Supplier)}
}

func (m *mockSupplierRepo) Create(_ context.Context, s *Supplier) error {
	if _, ok := m.suppliers[s.SupplierID]; ok {
		return db.ErrDuplicate
	}
	m.suppliers[s.SupplierID] = s
	return nil
}

func (m *mockSupplierRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := m.suppliers[id]
	return ok, nil
}

func (m *mockSupplierRepo) Search(_ context.Context, f SupplierFilter, limit, offset int) ([]*Supplier, int, error) {
	var result []*Supplier
	for _, s := range m.suppliers {
		if f.MinCapital != nil && s.Capital < *f.MinCapital {
			continue
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SupplierID < result[j].SupplierID })
	return page(result, limit, offset)
}

func page[T any](items []T, limit, offset int) ([]T, int, error) {
	total := len(items)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total, nil
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
