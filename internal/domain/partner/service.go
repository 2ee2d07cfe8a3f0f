package partner

import (
	"context"
)

type Service struct {
	hospitals HospitalRepository
	suppliers SupplierRepository
}

func NewService(hospitals HospitalRepository, suppliers SupplierRepository) *Service {
	return &Service{hospitals: hospitals, suppliers: suppliers}
}

func (s *Service) GetHospital(ctx context.Context, id string) (*Hospital, error) {
	return s.hospitals.GetByID(ctx, id)
}

func (s *Service) SearchHospitals(ctx context.Context, f HospitalFilter, limit, offset int) ([]*Hospital, int, error) {
	return s.hospitals.Search(ctx, f, limit, offset)
}

func (s *Service) SearchSuppliers(ctx context.Context, f SupplierFilter, limit, offset int) ([]*Supplier, int, error) {
	return s.suppliers.Search(ctx, f, limit, offset)
}
