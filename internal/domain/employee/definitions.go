package employee

import (
	"context"
	"fmt"
	"regexp"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/db"
	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/internal/platform/workflow"
)

var (
	empIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	// Printable ASCII keeps every password within bcrypt's 72-byte limit.
	passwordPattern = regexp.MustCompile(`^[\x21-\x7E]+$`)
)

var roleChoices = []workflow.Choice{
	{Value: int64(auth.RoleReception), Label: "Reception"},
	{Value: int64(auth.RoleDoctor), Label: "Doctor"},
}

func hashPassword(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("password: unexpected %T", v)
	}
	return auth.HashPassword(s)
}

func passwordFields() []workflow.Field {
	return []workflow.Field{
		{
			Name: "password", Label: "Password", Type: workflow.TypeSecret, Required: true,
			MinLen: 8, MaxLen: 64,
			Pattern: passwordPattern, PatternHint: "may contain only letters, digits and symbols",
			Normalize: hashPassword,
		},
		{Name: "password_confirm", Label: "Password (again)", Type: workflow.TypeSecret, Required: true, ConfirmOf: "password"},
	}
}

// NewDefinition describes staff registration and the name change.
func NewDefinition(repo Repository) *workflow.Definition {
	fields := []workflow.Field{
		{
			Name: "emp_id", Label: "Employee ID", Required: true, MaxLen: 8,
			Pattern: empIDPattern, PatternHint: "may contain only letters and digits",
		},
		{Name: "last_name", Label: "Last name", Required: true, MaxLen: 64},
		{Name: "first_name", Label: "First name", Required: true, MaxLen: 64},
	}
	fields = append(fields, passwordFields()...)
	fields = append(fields, workflow.Field{
		Name: "role", Label: "Role", Type: workflow.TypeChoice, Required: true, Choices: roleChoices,
	})
	return &workflow.Definition{
		Kind:   pending.KindEmployee,
		Title:  "Employee",
		Fields: fields,
		Editable: map[pending.Mode][]string{
			pending.ModeCreate: {"emp_id", "last_name", "first_name", "password", "password_confirm", "role"},
			pending.ModeUpdate: {"last_name", "first_name"},
		},
		Backend: &employeeBackend{repo: repo},
	}
}

// NewPasswordDefinition describes a user changing their own password.
func NewPasswordDefinition(repo Repository) *workflow.Definition {
	return &workflow.Definition{
		Kind:   pending.KindPassword,
		Title:  "Password change",
		Fields: passwordFields(),
		Editable: map[pending.Mode][]string{
			pending.ModeUpdate: {"password", "password_confirm"},
		},
		Backend: &passwordBackend{repo: repo},
	}
}

type employeeBackend struct{ repo Repository }

func (b *employeeBackend) Check(ctx context.Context, mode pending.Mode, targetID string, v workflow.Values) error {
	if mode == pending.ModeCreate {
		id := v.String("emp_id")
		exists, err := b.repo.Exists(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			return &workflow.DuplicateKey{Field: "emp_id", Value: id, Message: "Employee ID " + id + " is already registered"}
		}
		return nil
	}
	return mustExist(ctx, b.repo, targetID)
}

func (b *employeeBackend) Commit(ctx context.Context, mode pending.Mode, targetID string, v workflow.Values) error {
	if mode == pending.ModeCreate {
		return b.repo.Create(ctx, &Employee{
			EmpID:        v.String("emp_id"),
			LastName:     v.String("last_name"),
			FirstName:    v.String("first_name"),
			PasswordHash: v.String("password"),
			Role:         auth.Role(v.Int("role")),
		})
	}
	return b.repo.UpdateName(ctx, targetID, v.String("last_name"), v.String("first_name"))
}

func (b *employeeBackend) Load(ctx context.Context, targetID string) (workflow.Values, error) {
	e, err := b.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return workflow.Values{
		"emp_id":     e.EmpID,
		"last_name":  e.LastName,
		"first_name": e.FirstName,
		"role":       int64(e.Role),
	}, nil
}

type passwordBackend struct{ repo Repository }

func (b *passwordBackend) Check(ctx context.Context, _ pending.Mode, targetID string, _ workflow.Values) error {
	return mustExist(ctx, b.repo, targetID)
}

func (b *passwordBackend) Commit(ctx context.Context, _ pending.Mode, targetID string, v workflow.Values) error {
	return b.repo.UpdatePassword(ctx, targetID, v.String("password"))
}

func (b *passwordBackend) Load(ctx context.Context, targetID string) (workflow.Values, error) {
	if err := mustExist(ctx, b.repo, targetID); err != nil {
		return nil, err
	}
	return workflow.Values{}, nil
}

func mustExist(ctx context.Context, repo Repository, empID string) error {
	exists, err := repo.Exists(ctx, empID)
	if err != nil {
		return err
	}
	if !exists {
		return db.ErrNotFound
	}
	return nil
}
