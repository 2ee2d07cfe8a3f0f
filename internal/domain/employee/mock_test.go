package employee

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/db"
)

func init() {
	auth.PasswordCost = bcrypt.MinCost
}

type mockRepo struct {
	mu        sync.Mutex
	employees map[string]*Employee
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{employees: make(map[string]*Employee)}
}

func (m *mockRepo) seed(id, last, first, password string, role auth.Role) *Employee {
	hash, _ := auth.HashPassword(password)
	e := &Employee{EmpID: id, LastName: last, FirstName: first, PasswordHash: hash, Role: role}
	m.employees[id] = e
	return e
}

func (m *mockRepo) Create(_ context.Context, e *Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.employees[e.EmpID]; ok {
		return db.ErrDuplicate
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.employees[e.EmpID] = e
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, empID string) (*Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[empID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockRepo) Exists(_ context.Context, empID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.employees[empID]
	return ok, nil
}

func (m *mockRepo) UpdateName(_ context.Context, empID, lastName, firstName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[empID]
	if !ok {
		return db.ErrNotFound
	}
	e.LastName, e.FirstName = lastName, firstName
	return nil
}

func (m *mockRepo) UpdatePassword(_ context.Context, empID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[empID]
	if !ok {
		return db.ErrNotFound
	}
	e.PasswordHash = passwordHash
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Employee, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Employee
	for _, e := range m.employees {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmpID < result[j].EmpID })
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
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
