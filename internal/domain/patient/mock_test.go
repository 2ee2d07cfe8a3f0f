package patient

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abaranti/abaranti/internal/platform/db"
)

type mockRepo struct {
	patients map[string]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[string]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.PatientID]; ok {
		return db.ErrDuplicate
	}
	m.patients[p.PatientID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := m.patients[id]
	return ok, nil
}

func (m *mockRepo) UpdateInsurance(_ context.Context, id, number string, exp time.Time) error {
	p, ok := m.patients[id]
	if !ok {
		return db.ErrNotFound
	}
	p.InsuranceNumber, p.InsuranceExp = number, exp
	return nil
}

func (m *mockRepo) Search(_ context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if f.Name != "" && !strings.Contains(p.LastName, f.Name) && !strings.Contains(p.FirstName, f.Name) {
			continue
		}
		if f.ExpiredBefore != nil && !p.InsuranceExp.Before(*f.ExpiredBefore) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PatientID < result[j].PatientID })
	total := len(result)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return result[offset:end], total, nil
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

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
