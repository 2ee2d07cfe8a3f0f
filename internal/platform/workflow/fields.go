package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DateLayout is the wire format of date inputs.
const DateLayout = "2006-01-02"

type FieldType int

const (
	TypeText FieldType = iota
	// TypeSecret is never echoed back into a form or shown on a confirm page.
	TypeSecret
	TypeInt
	TypeDate
	TypeChoice
)

// Choice is one option of a TypeChoice field.
type Choice struct {
	Value int64
	Label string
}

// Field describes one form input: how to parse it, check it and stage it.
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool

	MinLen      int
	MaxLen      int
	Pattern     *regexp.Regexp
	PatternHint string

	Min *int64
	Max *int64

	Choices []Choice

	// ConfirmOf names the field this one must repeat. Confirmation fields
	// are compared, never staged.
	ConfirmOf string

	// Normalize converts the parsed value before staging, e.g. hashing a
	// password.
	Normalize func(v any) (any, error)

	Help string
}

func Int64(n int64) *int64 { return &n }

// InputType returns the HTML input type for the field.
func (f *Field) InputType() string {
	switch f.Type {
	case TypeSecret:
		return "password"
	case TypeInt:
		return "number"
	case TypeDate:
		return "date"
	case TypeChoice:
		return "select"
	default:
		return "text"
	}
}

func (f *Field) fail(code Code, format string, args ...any) *FieldError {
	return &FieldError{Field: f.Name, Code: code, Message: f.Label + " " + fmt.Sprintf(format, args...)}
}

// clean strips control characters; non-secret values are also trimmed.
func (f *Field) clean(raw string) string {
	raw = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	if f.Type == TypeSecret {
		return raw
	}
	return strings.TrimSpace(raw)
}

// Parse validates one raw form value and returns its typed form: string for
// text and secret fields, int64 for int and choice fields, time.Time for
// dates. An empty optional field parses to "" (text) or nil.
func (f *Field) Parse(raw string) (any, *FieldError) {
	raw = f.clean(raw)

	if raw == "" {
		if f.Required {
			return nil, f.fail(CodeRequired, "is required")
		}
		if f.Type == TypeText || f.Type == TypeSecret {
			return "", nil
		}
		return nil, nil
	}

	switch f.Type {
	case TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, f.fail(CodeInvalidNumber, "must be a whole number")
		}
		if f.Min != nil && n < *f.Min {
			return nil, f.fail(CodeOutOfRange, "must be at least %d", *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return nil, f.fail(CodeOutOfRange, "must be at most %d", *f.Max)
		}
		return n, nil

	case TypeDate:
		t, err := time.Parse(DateLayout, raw)
		if err != nil {
			return nil, f.fail(CodeInvalidDate, "must be a date in YYYY-MM-DD format")
		}
		return t, nil

	case TypeChoice:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			for _, c := range f.Choices {
				if c.Value == n {
					return n, nil
				}
			}
		}
		return nil, f.fail(CodeInvalidChoice, "has an invalid selection")

	default:
		length := utf8.RuneCountInString(raw)
		if f.MinLen > 0 && length < f.MinLen {
			return nil, f.fail(CodeTooShort, "must be at least %d characters", f.MinLen)
		}
		if f.MaxLen > 0 && length > f.MaxLen {
			return nil, f.fail(CodeTooLong, "must be at most %d characters", f.MaxLen)
		}
		if f.Pattern != nil && !f.Pattern.MatchString(raw) {
			hint := f.PatternHint
			if hint == "" {
				hint = "has an invalid format"
			}
			return nil, f.fail(CodeInvalidFormat, "%s", hint)
		}
		return raw, nil
	}
}

// Display renders a staged value for the confirm page and list views.
func (f *Field) Display(v any) string {
	if f.Type == TypeSecret {
		return "********"
	}
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		if f.Type == TypeChoice {
			for _, c := range f.Choices {
				if c.Value == x {
					return c.Label
				}
			}
		}
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(DateLayout)
	default:
		return fmt.Sprint(x)
	}
}

// FormValue renders a staged or stored value back into an input.
func (f *Field) FormValue(v any) string {
	if f.Type == TypeSecret {
		return ""
	}
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(DateLayout)
	default:
		return fmt.Sprint(x)
	}
}
