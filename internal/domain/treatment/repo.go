package treatment

import "context"

type MedicineRepository interface {
	List(ctx context.Context, limit, offset int) ([]*Medicine, int, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type TreatmentRepository interface {
	Create(ctx context.Context, t *Treatment) error
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Treatment, int, error)
}
