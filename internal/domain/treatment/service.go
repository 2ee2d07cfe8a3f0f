package treatment

import (
	"context"

	"github.com/abaranti/abaranti/internal/domain/patient"
)

type Service struct {
	medicines  MedicineRepository
	treatments TreatmentRepository
	patients   patient.Repository
}

func NewService(medicines MedicineRepository, treatments TreatmentRepository, patients patient.Repository) *Service {
	return &Service{medicines: medicines, treatments: treatments, patients: patients}
}

func (s *Service) ListMedicines(ctx context.Context, limit, offset int) ([]*Medicine, int, error) {
	return s.medicines.List(ctx, limit, offset)
}

// History returns the patient and one page of their treatments, newest
// first.
func (s *Service) History(ctx context.Context, patientID string, limit, offset int) (*patient.Patient, []*Treatment, int, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, nil, 0, err
	}
	items, total, err := s.treatments.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, nil, 0, err
	}
	return p, items, total, nil
}
