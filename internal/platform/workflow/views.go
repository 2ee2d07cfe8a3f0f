package workflow

import (
	"strconv"

	"github.com/abaranti/abaranti/internal/platform/pending"
)

// FormField is one input of the shared "form" view.
type FormField struct {
	Name      string
	Label     string
	InputType string
	Value     string
	Error     string
	Required  bool
	MaxLen    int
	Help      string
	Options   []FormOption
}

type FormOption struct {
	Value    string
	Label    string
	Selected bool
}

// FormView is the data of the input step.
type FormView struct {
	Title      string
	Action     string
	Mode       pending.Mode
	TargetID   string
	Fields     []FormField
	Errors     []string
	CancelPath string
}

// ConfirmRow is one "label: value" line of the confirm view.
type ConfirmRow struct {
	Label string
	Value string
}

// ConfirmView is the data of the confirm step.
type ConfirmView struct {
	Title    string
	Action   string
	Token    string
	TargetID string
	Rows     []ConfirmRow
	Errors   []string
}

// buildForm lays out the editable fields of mode with their current input
// values and error messages.
func buildForm(def *Definition, mode pending.Mode, values map[string]string, fieldErrs map[string]string) []FormField {
	fields := def.EditableFields(mode)
	out := make([]FormField, 0, len(fields))
	for _, f := range fields {
		ff := FormField{
			Name:      f.Name,
			Label:     f.Label,
			InputType: f.InputType(),
			Error:     fieldErrs[f.Name],
			Required:  f.Required,
			MaxLen:    f.MaxLen,
			Help:      f.Help,
		}
		if f.Type != TypeSecret {
			ff.Value = values[f.Name]
		}
		for _, c := range f.Choices {
			v := strconv.FormatInt(c.Value, 10)
			ff.Options = append(ff.Options, FormOption{Value: v, Label: c.Label, Selected: v == ff.Value})
		}
		out = append(out, ff)
	}
	return out
}

// formValues renders typed values back to input strings.
func formValues(def *Definition, vals Values) map[string]string {
	out := make(map[string]string, len(vals))
	for _, f := range def.Fields {
		if v, ok := vals[f.Name]; ok {
			out[f.Name] = f.FormValue(v)
		}
	}
	return out
}

// confirmRows lists the staged values of mode, skipping confirmation fields.
func confirmRows(def *Definition, mode pending.Mode, vals Values) []ConfirmRow {
	var rows []ConfirmRow
	for _, f := range def.EditableFields(mode) {
		if f.ConfirmOf != "" {
			continue
		}
		rows = append(rows, ConfirmRow{Label: f.Label, Value: f.Display(vals[f.Name])})
	}
	return rows
}
