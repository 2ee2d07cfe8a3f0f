package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/abaranti/abaranti/internal/platform/pending"
)

// Values are validated, typed field values keyed by field name.
type Values map[string]any

func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v Values) Int(name string) int64 {
	switch n := v[name].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

func (v Values) Time(name string) time.Time {
	t, _ := v[name].(time.Time)
	return t
}

// Has reports whether name is present with a non-nil value.
func (v Values) Has(name string) bool {
	val, ok := v[name]
	return ok && val != nil
}

// Backend is the persistence side of one record kind.
type Backend interface {
	// Check runs the data-dependent guards of the input step: duplicate
	// identifiers, references to missing records, rules against the current
	// record. It returns *DuplicateKey or *FieldError for user errors.
	Check(ctx context.Context, mode pending.Mode, targetID string, v Values) error
	// Commit persists every staged field or none.
	Commit(ctx context.Context, mode pending.Mode, targetID string, v Values) error
	// Load returns the current values of targetID for prefilling an update
	// form, or db.ErrNotFound.
	Load(ctx context.Context, targetID string) (Values, error)
}

// Definition is the field table of one record kind plus, for each
// operation mode, the allow-list of fields that mode may write.
type Definition struct {
	Kind     pending.Kind
	Title    string
	Fields   []Field
	Editable map[pending.Mode][]string
	Backend  Backend
}

func (d *Definition) Field(name string) (*Field, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i], true
		}
	}
	return nil, false
}

func (d *Definition) Supports(mode pending.Mode) bool {
	_, ok := d.Editable[mode]
	return ok
}

// EditableFields returns the fields writable in mode, in table order.
func (d *Definition) EditableFields(mode pending.Mode) []*Field {
	allowed := make(map[string]bool, len(d.Editable[mode]))
	for _, name := range d.Editable[mode] {
		allowed[name] = true
	}
	var out []*Field
	for i := range d.Fields {
		if allowed[d.Fields[i].Name] {
			out = append(out, &d.Fields[i])
		}
	}
	return out
}

// Check verifies the table is consistent: every allow-listed field exists and
// every confirmation field is allowed together with its primary.
func (d *Definition) Check() error {
	for mode, names := range d.Editable {
		allowed := make(map[string]bool, len(names))
		for _, name := range names {
			if _, ok := d.Field(name); !ok {
				return fmt.Errorf("%s: %s mode lists unknown field %q", d.Kind, mode, name)
			}
			allowed[name] = true
		}
		for _, f := range d.EditableFields(mode) {
			if f.ConfirmOf != "" && !allowed[f.ConfirmOf] {
				return fmt.Errorf("%s: %s mode allows %q without %q", d.Kind, mode, f.Name, f.ConfirmOf)
			}
		}
	}
	if d.Backend == nil {
		return fmt.Errorf("%s: no backend", d.Kind)
	}
	return nil
}

// Validate parses the raw submission for mode. Fields outside the mode's
// allow-list are ignored even if submitted. On success the returned values
// are normalized and ready to stage.
func (d *Definition) Validate(mode pending.Mode, raw map[string]string) (Values, error) {
	if !d.Supports(mode) {
		return nil, fmt.Errorf("%s %s: %w", d.Kind, mode, ErrModeNotSupported)
	}

	fields := d.EditableFields(mode)
	vals := make(Values, len(fields))
	var errs ValidationErrors

	for _, f := range fields {
		if f.ConfirmOf != "" {
			continue
		}
		v, ferr := f.Parse(raw[f.Name])
		if ferr != nil {
			errs = append(errs, ferr)
			continue
		}
		vals[f.Name] = v
	}

	for _, f := range fields {
		if f.ConfirmOf == "" {
			continue
		}
		primary, _ := d.Field(f.ConfirmOf)
		if _, parsed := vals[primary.Name]; !parsed {
			// The primary already carries an error; one message is enough.
			continue
		}
		confirm := f.clean(raw[f.Name])
		if confirm == "" && f.Required {
			errs = append(errs, f.fail(CodeRequired, "is required"))
			continue
		}
		if confirm != primary.clean(raw[primary.Name]) {
			errs = append(errs, &FieldMismatch{
				Field:        primary.Name,
				ConfirmField: f.Name,
				Message:      fmt.Sprintf("%s and %s do not match", primary.Label, f.Label),
			})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	for _, f := range fields {
		if f.Normalize == nil || f.ConfirmOf != "" {
			continue
		}
		v, err := f.Normalize(vals[f.Name])
		if err != nil {
			return nil, fmt.Errorf("normalize %s: %w", f.Name, err)
		}
		vals[f.Name] = v
	}
	return vals, nil
}
