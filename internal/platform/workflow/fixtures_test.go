package workflow

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/abaranti/abaranti/internal/platform/db"
	"github.com/abaranti/abaranti/internal/platform/pending"
)

// hospitalBackend is a map-backed Backend used across the package tests.
type hospitalBackend struct {
	mu        sync.Mutex
	records   map[string]Values
	commits   int
	commitErr error
}

func newHospitalBackend() *hospitalBackend {
	return &hospitalBackend{records: make(map[string]Values)}
}

func (b *hospitalBackend) Check(_ context.Context, mode pending.Mode, targetID string, v Values) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if mode == pending.ModeCreate {
		id := v.String("hospital_id")
		if _, ok := b.records[id]; ok {
			return &DuplicateKey{Field: "hospital_id", Value: id}
		}
		return nil
	}
	if _, ok := b.records[targetID]; !ok {
		return db.ErrNotFound
	}
	return nil
}

func (b *hospitalBackend) Commit(_ context.Context, mode pending.Mode, targetID string, v Values) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.commitErr != nil {
		return b.commitErr
	}
	b.commits++
	if mode == pending.ModeCreate {
		id := v.String("hospital_id")
		if _, ok := b.records[id]; ok {
			return db.ErrDuplicate
		}
		rec := Values{}
		for k, val := range v {
			rec[k] = val
		}
		b.records[id] = rec
		return nil
	}
	rec, ok := b.records[targetID]
	if !ok {
		return db.ErrNotFound
	}
	for k, val := range v {
		rec[k] = val
	}
	return nil
}

func (b *hospitalBackend) Load(_ context.Context, targetID string) (Values, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[targetID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return rec, nil
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

func hashForTest(v any) (any, error) {
	s, _ := v.(string)
	if s == "" {
		return nil, errors.New("empty secret")
	}
	return "hashed:" + strings.ToUpper(s), nil
}

func hospitalDefinition(b Backend) *Definition {
	return &Definition{
		Kind:  pending.KindHospital,
		Title: "Partner hospital",
		Fields: []Field{
			{Name: "hospital_id", Label: "Hospital ID", Required: true, MaxLen: 8, Pattern: idPattern, PatternHint: "must contain only letters and digits"},
			{Name: "hospital_name", Label: "Name", Required: true, MaxLen: 64},
			{Name: "phone_number", Label: "Phone", Required: true, MaxLen: 13},
			{Name: "capital", Label: "Capital", Type: TypeInt, Required: true, Min: Int64(0)},
			{Name: "emergency", Label: "Emergency", Type: TypeChoice, Required: true, Choices: []Choice{{1, "Yes"}, {0, "No"}}},
			{Name: "contract_date", Label: "Contract date", Type: TypeDate},
			{Name: "secret", Label: "Access code", Type: TypeSecret, MinLen: 4, Normalize: hashForTest},
			{Name: "secret_confirm", Label: "Access code (again)", Type: TypeSecret, ConfirmOf: "secret"},
		},
		Editable: map[pending.Mode][]string{
			pending.ModeCreate: {"hospital_id", "hospital_name", "phone_number", "capital", "emergency", "contract_date", "secret", "secret_confirm"},
			pending.ModeUpdate: {"phone_number"},
		},
		Backend: b,
	}
}

func validHospitalRaw() map[string]string {
	return map[string]string{
		"hospital_id":    "H001",
		"hospital_name":  "Central Hospital",
		"phone_number":   "03-1234-5678",
		"capital":        "1000",
		"emergency":      "1",
		"contract_date":  "2026-04-01",
		"secret":         "abcd",
		"secret_confirm": "abcd",
	}
}
