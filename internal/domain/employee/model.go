package employee

import (
	"time"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/pkg/pagination"
)

// Employee maps to the employee table.
type Employee struct {
	EmpID        string    `db:"emp_id"`
	LastName     string    `db:"last_name"`
	FirstName    string    `db:"first_name"`
	PasswordHash string    `db:"password_hash"`
	Role         auth.Role `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (e *Employee) FullName() string {
	return e.LastName + " " + e.FirstName
}

// ListView is the data of the employee_list view.
type ListView struct {
	Items []*Employee
	Pager pagination.Pager
}
