package patient

import (
	"context"
	"regexp"
	"time"

	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/internal/platform/workflow"
)

var (
	idPattern        = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	insurancePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

var fields = []workflow.Field{
	{Name: "patient_id", Label: "Patient ID", Required: true, MaxLen: 8, Pattern: idPattern, PatternHint: "may contain only letters and digits"},
	{Name: "last_name", Label: "Last name", Required: true, MaxLen: 64},
	{Name: "first_name", Label: "First name", Required: true, MaxLen: 64},
	{
		Name: "gender", Label: "Gender", Type: workflow.TypeChoice, Required: true,
		Choices: []workflow.Choice{{Value: GenderMale, Label: "Male"}, {Value: GenderFemale, Label: "Female"}},
	},
	{Name: "birthdate", Label: "Birthdate", Type: workflow.TypeDate, Required: true},
	{
		Name: "insurance_number", Label: "Insurance number", Required: true, MaxLen: 64,
		Pattern: insurancePattern, PatternHint: "may contain only letters, digits and hyphens",
	},
	{Name: "insurance_number_confirm", Label: "Insurance number (again)", Required: true, ConfirmOf: "insurance_number"},
	{Name: "insurance_exp", Label: "Insurance expiry", Type: workflow.TypeDate, Required: true},
}

// NewDefinition describes patient registration.
func NewDefinition(repo Repository) *workflow.Definition {
	return &workflow.Definition{
		Kind:   pending.KindPatient,
		Title:  "Patient",
		Fields: fields,
		Editable: map[pending.Mode][]string{
			pending.ModeCreate: {
				"patient_id", "last_name", "first_name", "gender", "birthdate",
				"insurance_number", "insurance_number_confirm", "insurance_exp",
			},
		},
		Backend: &patientBackend{repo: repo, now: time.Now},
	}
}

// NewInsuranceDefinition describes replacing a patient's insurance record.
func NewInsuranceDefinition(repo Repository) *workflow.Definition {
	return &workflow.Definition{
		Kind:   pending.KindInsurance,
		Title:  "Insurance change",
		Fields: fields,
		Editable: map[pending.Mode][]string{
			pending.ModeUpdate: {"insurance_number", "insurance_number_confirm", "insurance_exp"},
		},
		Backend: &patientBackend{repo: repo, now: time.Now},
	}
}

type patientBackend struct {
	repo Repository
	now  func() time.Time
}

func (b *patientBackend) Check(ctx context.Context, mode pending.Mode, targetID string, v workflow.Values) error {
	if mode == pending.ModeCreate {
		id := v.String("patient_id")
		exists, err := b.repo.Exists(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			return &workflow.DuplicateKey{Field: "patient_id", Value: id, Message: "Patient ID " + id + " is already registered"}
		}
		if v.Time("birthdate").After(today(b.now())) {
			return &workflow.FieldError{Field: "birthdate", Code: workflow.CodeOutOfRange, Message: "Birthdate must not be in the future"}
		}
		return nil
	}

	current, err := b.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if v.Time("insurance_exp").Before(current.InsuranceExp) {
		return &workflow.FieldError{
			Field:   "insurance_exp",
			Code:    workflow.CodeOutOfRange,
			Message: "Insurance expiry must not be earlier than the current expiry " + current.InsuranceExp.Format(workflow.DateLayout),
		}
	}
	return nil
}

func (b *patientBackend) Commit(ctx context.Context, mode pending.Mode, targetID string, v workflow.Values) error {
	if mode == pending.ModeUpdate {
		return b.repo.UpdateInsurance(ctx, targetID, v.String("insurance_number"), v.Time("insurance_exp"))
	}
	return b.repo.Create(ctx, &Patient{
		PatientID:       v.String("patient_id"),
		LastName:        v.String("last_name"),
		FirstName:       v.String("first_name"),
		Gender:          int(v.Int("gender")),
		Birthdate:       v.Time("birthdate"),
		InsuranceNumber: v.String("insurance_number"),
		InsuranceExp:    v.Time("insurance_exp"),
	})
}

func (b *patientBackend) Load(ctx context.Context, targetID string) (workflow.Values, error) {
	p, err := b.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return workflow.Values{
		"insurance_number": p.InsuranceNumber,
		"insurance_exp":    p.InsuranceExp,
	}, nil
}
