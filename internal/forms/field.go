// internal/forms/field.go
package forms

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"rts-portal/internal/common/validation"
)

// Kind is the value type a form field binds to.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindDate   Kind = "date" // yyyy-mm-dd
	KindTime   Kind = "time" // HH:MM[:SS]
)

// Envelope columns a field can be stored in instead of the payload.
const (
	ToTitle      = "title"
	ToFirstName  = "first_name"
	ToMiddleName = "middle_name"
	ToLastName   = "last_name"
	ToMobile     = "mobile"
	ToEmail      = "email"
	ToStreet     = "street"
	ToArea       = "area"
	ToCity       = "city"
	ToDistrict   = "district"
	ToPinCode    = "pin_code"
	ToLandmark   = "landmark"
	ToLatitude   = "latitude"
	ToLongitude  = "longitude"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Field declares one input of a form.
type Field struct {
	Name      string            `json:"name"`
	Label     string            `json:"label"`
	Kind      Kind              `json:"kind"`
	Required  bool              `json:"required"`
	MaxLength int               `json:"maxLength,omitempty"`
	Min       *float64          `json:"min,omitempty"`
	Max       *float64          `json:"max,omitempty"`
	Pattern   string            `json:"pattern,omitempty"`
	Email     bool              `json:"email,omitempty"`
	Default   interface{}       `json:"default,omitempty"`
	Column    string            `json:"-"`
	Messages  map[string]string `json:"-"`
}

func str(name, label string, maxLength int) Field {
	return Field{Name: name, Label: label, Kind: KindString, MaxLength: maxLength}
}

func integer(name, label string, min, max float64) Field {
	return Field{Name: name, Label: label, Kind: KindInt, Min: validation.Float(min), Max: validation.Float(max)}
}

func number(name, label string, min, max float64) Field {
	return Field{Name: name, Label: label, Kind: KindNumber, Min: validation.Float(min), Max: validation.Float(max)}
}

func boolean(name, label string) Field {
	return Field{Name: name, Label: label, Kind: KindBool}
}

func date(name, label string) Field {
	return Field{Name: name, Label: label, Kind: KindDate}
}

func clock(name, label string) Field {
	return Field{Name: name, Label: label, Kind: KindTime}
}

func (f Field) req() Field {
	f.Required = true
	return f
}

func (f Field) to(column string) Field {
	f.Column = column
	return f
}

func (f Field) def(v interface{}) Field {
	f.Default = v
	return f
}

func (f Field) match(pattern, message string) Field {
	f.Pattern = pattern
	return f.msg(validation.CodePattern, message)
}

func (f Field) email() Field {
	f.Email = true
	return f.msg(validation.CodeFormat, "Invalid email address")
}

func (f Field) msg(code, message string) Field {
	m := make(map[string]string, len(f.Messages)+1)
	for k, v := range f.Messages {
		m[k] = v
	}
	m[code] = message
	f.Messages = m
	return f
}

// property renders the field as a JSON schema property.
func (f Field) property() validation.Property {
	p := validation.Property{Description: f.Label}
	switch f.Kind {
	case KindInt:
		p.Type = "integer"
	case KindNumber:
		p.Type = "number"
	case KindBool:
		p.Type = "boolean"
	case KindDate:
		p.Type = "string"
		p.Pattern = validation.String(`^\d{4}-\d{2}-\d{2}$`)
	case KindTime:
		p.Type = "string"
		p.Pattern = validation.String(`^\d{2}:\d{2}:\d{2}$`)
	default:
		p.Type = "string"
	}
	if f.MaxLength > 0 {
		p.MaxLength = validation.Int(f.MaxLength)
	}
	if f.Pattern != "" {
		p.Pattern = validation.String(f.Pattern)
	}
	if f.Email {
		p.Format = "email"
	}
	p.Minimum = f.Min
	p.Maximum = f.Max
	return p
}

// message picks the user-facing text for a validation failure.
func (f Field) message(code string) string {
	if m, ok := f.Messages[code]; ok {
		return m
	}
	switch code {
	case validation.CodeRequired:
		return f.Label + " is required"
	case validation.CodeMaxLength:
		return fmt.Sprintf("%s cannot exceed %d characters", f.Label, f.MaxLength)
	case validation.CodeMinimum, validation.CodeMaximum:
		return fmt.Sprintf("%s must be between %s and %s", f.Label, formatBound(f.Min), formatBound(f.Max))
	case validation.CodeFormat:
		return "Invalid " + strings.ToLower(f.Label)
	case validation.CodePattern:
		return "Please enter a valid " + strings.ToLower(f.Label)
	default:
		return f.Label + " has an invalid value"
	}
}

func formatBound(v *float64) string {
	if v == nil {
		return "?"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// coerce converts a raw input value to the field's kind. Blank values
// report ok=false so the caller can apply a default or treat them as absent.
func (f Field) coerce(raw interface{}) (value interface{}, ok bool, err error) {
	if f.Kind == KindBool {
		return coerceBool(raw), true, nil
	}

	s, isString, present := textOf(raw)
	if !present {
		return nil, false, nil
	}

	switch f.Kind {
	case KindInt:
		if !isString {
			if n, ok := numberOf(raw); ok {
				if n != math.Trunc(n) {
					return nil, false, fmt.Errorf("%s must be a whole number", f.Label)
				}
				return int64(n), true, nil
			}
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("%s must be a whole number", f.Label)
		}
		return n, true, nil

	case KindNumber:
		if !isString {
			if n, ok := numberOf(raw); ok {
				return n, true, nil
			}
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, false, fmt.Errorf("%s must be a number", f.Label)
		}
		return n, true, nil

	case KindDate:
		for _, layout := range []string{dateLayout, time.RFC3339, "2006-01-02T15:04"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(dateLayout), true, nil
			}
		}
		return nil, false, fmt.Errorf("%s must be a date (yyyy-mm-dd)", f.Label)

	case KindTime:
		for _, layout := range []string{timeLayout, "15:04"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(timeLayout), true, nil
			}
		}
		return nil, false, fmt.Errorf("%s must be a time (HH:MM)", f.Label)

	default:
		return s, true, nil
	}
}

// textOf returns the trimmed text of raw. Multi-valued form inputs use the
// first non-blank value.
func textOf(raw interface{}) (s string, isString bool, present bool) {
	switch v := raw.(type) {
	case nil:
		return "", false, false
	case string:
		s = strings.TrimSpace(v)
		return s, true, s != ""
	case []string:
		for _, item := range v {
			if item = strings.TrimSpace(item); item != "" {
				return item, true, true
			}
		}
		return "", true, false
	case json.Number:
		return v.String(), true, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), false, true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), false, true
	case bool:
		return strconv.FormatBool(v), false, true
	default:
		return strings.TrimSpace(fmt.Sprint(v)), false, true
	}
}

func numberOf(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// coerceBool is true when any submitted value is truthy. Checkbox inputs
// post "true" alongside a hidden "false".
func coerceBool(raw interface{}) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return truthy(v)
	case []string:
		for _, item := range v {
			if truthy(item) {
				return true
			}
		}
	}
	return false
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}
