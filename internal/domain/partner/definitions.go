package partner

import (
	"context"
	"regexp"

	"github.com/abaranti/abaranti/internal/platform/db"
	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/internal/platform/workflow"
)

var (
	idPattern    = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]+(-[0-9]+)*$`)
)

const (
	idHint    = "may contain only letters and digits"
	phoneHint = "may contain only digits and hyphens"
)

// NewHospitalDefinition describes partner hospital registration and the
// phone number change.
func NewHospitalDefinition(repo HospitalRepository) *workflow.Definition {
	return &workflow.Definition{
		Kind:  pending.KindHospital,
		Title: "Partner hospital",
		Fields: []workflow.Field{
			{Name: "hospital_id", Label: "Hospital ID", Required: true, MaxLen: 8, Pattern: idPattern, PatternHint: idHint},
			{Name: "hospital_name", Label: "Name", Required: true, MaxLen: 64},
			{Name: "hospital_address", Label: "Address", Required: true, MaxLen: 64},
			{Name: "phone_number", Label: "Phone number", Required: true, MaxLen: 13, Pattern: phonePattern, PatternHint: phoneHint},
			{Name: "capital", Label: "Capital", Type: workflow.TypeInt, Required: true, Min: workflow.Int64(0), Help: "In yen"},
			{
				Name: "emergency", Label: "Emergency care", Type: workflow.TypeChoice, Required: true,
				Choices: []workflow.Choice{{Value: 1, Label: "Yes"}, {Value: 0, Label: "No"}},
			},
		},
		Editable: map[pending.Mode][]string{
			pending.ModeCreate: {"hospital_id", "hospital_name", "hospital_address", "phone_number", "capital", "emergency"},
			pending.ModeUpdate: {"phone_number"},
		},
		Backend: &hospitalBackend{repo: repo},
	}
}

// NewSupplierDefinition describes supplier registration.
func NewSupplierDefinition(repo SupplierRepository) *workflow.Definition {
	return &workflow.Definition{
		Kind:  pending.KindSupplier,
		Title: "Supplier",
		Fields: []workflow.Field{
			{Name: "supplier_id", Label: "Supplier ID", Required: true, MaxLen: 8, Pattern: idPattern, PatternHint: idHint},
			{Name: "supplier_name", Label: "Name", Required: true, MaxLen: 64},
			{Name: "supplier_address", Label: "Address", Required: true, MaxLen: 64},
			{Name: "phone_number", Label: "Phone number", Required: true, MaxLen: 13, Pattern: phonePattern, PatternHint: phoneHint},
			{Name: "capital", Label: "Capital", Type: workflow.TypeInt, Required: true, Min: workflow.Int64(0), Help: "In yen"},
			{Name: "delivery_time", Label: "Delivery time", Type: workflow.TypeInt, Required: true, Min: workflow.Int64(0), Max: workflow.Int64(365), Help: "In days"},
		},
		Editable: map[pending.Mode][]string{
			pending.ModeCreate: {"supplier_id", "supplier_name", "supplier_address", "phone_number", "capital", "delivery_time"},
		},
		Backend: &supplierBackend{repo: repo},
	}
}

type hospitalBackend struct{ repo HospitalRepository }

func (b *hospitalBackend) Check(ctx context.Context, mode pending.Mode, targetID string, v workflow.Values) error {
	id := targetID
	if mode == pending.ModeCreate {
		id = v.String("hospital_id")
	}
	exists, err := b.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case mode == pending.ModeCreate && exists:
		return &workflow.DuplicateKey{Field: "hospital_id", Value: id, Message: "Hospital ID " + id + " is already registered"}
	case mode == pending.ModeUpdate && !exists:
		return db.ErrNotFound
	}
	return nil
}

func (b *hospitalBackend) Commit(ctx context.Context, mode pending.Mode, targetID string, v workflow.Values) error {
	if mode == pending.ModeUpdate {
		return b.repo.UpdatePhone(ctx, targetID, v.String("phone_number"))
	}
	return b.repo.Create(ctx, &Hospital{
		HospitalID: v.String("hospital_id"),
		Name:       v.String("hospital_name"),
		Address:    v.String("hospital_address"),
		Phone:      v.String("phone_number"),
		Capital:    v.Int("capital"),
		Emergency:  v.Int("emergency") == 1,
	})
}

func (b *hospitalBackend) Load(ctx context.Context, targetID string) (workflow.Values, error) {
	h, err := b.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return workflow.Values{"phone_number": h.Phone}, nil
}

type supplierBackend struct{ repo SupplierRepository }

func (b *supplierBackend) Check(ctx context.Context, _ pending.Mode, _ string, v workflow.Values) error {
	id := v.String("supplier_id")
	exists, err := b.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		return &workflow.DuplicateKey{Field: "supplier_id", Value: id, Message: "Supplier ID " + id + " is already registered"}
	}
	return nil
}

func (b *supplierBackend) Commit(ctx context.Context, _ pending.Mode, _ string, v workflow.Values) error {
	return b.repo.Create(ctx, &Supplier{
		SupplierID:   v.String("supplier_id"),
		Name:         v.String("supplier_name"),
		Address:      v.String("supplier_address"),
		Phone:        v.String("phone_number"),
		Capital:      v.Int("capital"),
		DeliveryTime: int(v.Int("delivery_time")),
	})
}

// Load is never reached: suppliers have no update flow.
func (b *supplierBackend) Load(context.Context, string) (workflow.Values, error) {
	return nil, db.ErrNotFound
}
