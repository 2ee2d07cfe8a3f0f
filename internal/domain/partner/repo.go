package partner

import "context"

type HospitalRepository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id string) (*Hospital, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdatePhone(ctx context.Context, id, phone string) error
	Search(ctx context.Context, f HospitalFilter, limit, offset int) ([]*Hospital, int, error)
}

type SupplierRepository interface {
	Create(ctx context.Context, s *Supplier) error
	Exists(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, f SupplierFilter, limit, offset int) ([]*Supplier, int, error)
}
