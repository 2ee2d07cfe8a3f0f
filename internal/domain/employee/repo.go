package employee

import "context"

type Repository interface {
	Create(ctx context.Context, e *Employee) error
	GetByID(ctx context.Context, empID string) (*Employee, error)
	Exists(ctx context.Context, empID string) (bool, error)
	UpdateName(ctx context.Context, empID, lastName, firstName string) error
	UpdatePassword(ctx context.Context, empID, passwordHash string) error
	List(ctx context.Context, limit, offset int) ([]*Employee, int, error)
}
