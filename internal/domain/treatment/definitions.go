package treatment

import (
	"context"
	"errors"
	"regexp"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/db"
	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/internal/platform/workflow"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// ErrNoDoctor is returned when a treatment is committed outside a logged-in
// request.
var ErrNoDoctor = errors.New("treatment: no session to attribute the treatment to")

type existence interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// NewDefinition describes recording a medication administration.
func NewDefinition(patients existence, medicines MedicineRepository, treatments TreatmentRepository) *workflow.Definition {
	return &workflow.Definition{
		Kind:  pending.KindTreatment,
		Title: "Treatment",
		Fields: []workflow.Field{
			{Name: "patient_id", Label: "Patient ID", Required: true, MaxLen: 8, Pattern: idPattern, PatternHint: "may contain only letters and digits"},
			{Name: "medicine_id", Label: "Medicine ID", Required: true, MaxLen: 8, Pattern: idPattern, PatternHint: "may contain only letters and digits"},
			{Name: "quantity", Label: "Quantity", Type: workflow.TypeInt, Required: true, Min: workflow.Int64(1), Max: workflow.Int64(9999)},
		},
		Editable: map[pending.Mode][]string{
			pending.ModeCreate: {"patient_id", "medicine_id", "quantity"},
		},
		Backend: &treatmentBackend{patients: patients, medicines: medicines, treatments: treatments},
	}
}

type treatmentBackend struct {
	patients   existence
	medicines  existence
	treatments TreatmentRepository
}

func (b *treatmentBackend) Check(ctx context.Context, _ pending.Mode, _ string, v workflow.Values) error {
	var errs workflow.ValidationErrors

	ok, err := b.patients.Exists(ctx, v.String("patient_id"))
	if err != nil {
		return err
	}
	if !ok {
		errs = append(errs, &workflow.FieldError{Field: "patient_id", Code: workflow.CodeUnknownReference, Message: "No patient with this ID"})
	}

	ok, err = b.medicines.Exists(ctx, v.String("medicine_id"))
	if err != nil {
		return err
	}
	if !ok {
		errs = append(errs, &workflow.FieldError{Field: "medicine_id", Code: workflow.CodeUnknownReference, Message: "No medicine with this ID"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Commit attributes the treatment to the doctor of the confirming request.
func (b *treatmentBackend) Commit(ctx context.Context, _ pending.Mode, _ string, v workflow.Values) error {
	sess := auth.SessionFromContext(ctx)
	if sess == nil {
		return ErrNoDoctor
	}
	return b.treatments.Create(ctx, &Treatment{
		PatientID:  v.String("patient_id"),
		MedicineID: v.String("medicine_id"),
		Quantity:   int(v.Int("quantity")),
		DoctorID:   sess.EmpID,
	})
}

func (b *treatmentBackend) Load(context.Context, string) (workflow.Values, error) {
	return nil, db.ErrNotFound
}
