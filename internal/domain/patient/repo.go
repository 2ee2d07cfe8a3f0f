package patient

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateInsurance(ctx context.Context, id, number string, exp time.Time) error
	Search(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error)
}
