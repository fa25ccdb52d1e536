// Package forms models QR code set form-field schemas as a closed set of
// field types and validates attendee submissions against them. Unknown field
// types are rejected when a schema is saved, never silently stored.
package forms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rvegajr/blessbox-server/internal/api/validation"
)

type FieldType string

const (
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypePhone    FieldType = "phone"
	TypeSelect   FieldType = "select"
	TypeCheckbox FieldType = "checkbox"
)

var knownTypes = map[FieldType]bool{
	TypeText:     true,
	TypeEmail:    true,
	TypePhone:    true,
	TypeSelect:   true,
	TypeCheckbox: true,
}

type Field struct {
	ID       string    `json:"id"`
	Type     FieldType `json:"type"`
	Label    string    `json:"label"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// ValidationError names the first field that failed submission validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// DecodeFields parses a stored form_fields JSON column.
func DecodeFields(raw []byte) ([]Field, error) {
	var fields []Field
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding form fields: %w", err)
	}
	return fields, nil
}

// EncodeFields serializes a schema for storage.
func EncodeFields(fields []Field) ([]byte, error) {
	return json.Marshal(fields)
}

// ValidateSchema checks a field list before it is saved on a QR code set.
func ValidateSchema(fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.ID == "" {
			return &ValidationError{Field: f.Label, Reason: "field id is required"}
		}
		if f.Label == "" {
			return &ValidationError{Field: f.ID, Reason: "field label is required"}
		}
		if !knownTypes[f.Type] {
			return &ValidationError{Field: f.ID, Reason: fmt.Sprintf("unknown field type %q", f.Type)}
		}
		if f.Type == TypeSelect && len(f.Options) == 0 {
			return &ValidationError{Field: f.ID, Reason: "select field needs at least one option"}
		}
		if seen[f.ID] {
			return &ValidationError{Field: f.ID, Reason: "duplicate field id"}
		}
		seen[f.ID] = true
	}
	return nil
}

// ValidateSubmission checks attendee answers against the schema and returns
// a cleaned record containing only schema fields with coerced values. Keys
// not present in the schema are dropped.
func ValidateSubmission(fields []Field, data map[string]interface{}) (map[string]interface{}, error) {
	cleaned := make(map[string]interface{}, len(fields))

	for _, f := range fields {
		raw, present := data[f.ID]

		if !present || isEmpty(raw) {
			if f.Required {
				return nil, &ValidationError{Field: f.ID, Reason: "required field is missing"}
			}
			continue
		}

		value, err := coerce(f, raw)
		if err != nil {
			return nil, err
		}
		cleaned[f.ID] = value
	}

	return cleaned, nil
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func coerce(f Field, raw interface{}) (interface{}, error) {
	switch f.Type {
	case TypeText:
		s, ok := raw.(string)
		if !ok {
			return nil, &ValidationError{Field: f.ID, Reason: "expected text value"}
		}
		return validation.SanitizeString(s), nil

	case TypeEmail:
		s, ok := raw.(string)
		if !ok || !validation.IsValidEmail(strings.TrimSpace(s)) {
			return nil, &ValidationError{Field: f.ID, Reason: "invalid email address"}
		}
		return strings.TrimSpace(s), nil

	case TypePhone:
		s, ok := raw.(string)
		if !ok || !validation.IsValidPhone(strings.TrimSpace(s)) {
			return nil, &ValidationError{Field: f.ID, Reason: "invalid phone number"}
		}
		return strings.TrimSpace(s), nil

	case TypeSelect:
		s, ok := raw.(string)
		if !ok {
			return nil, &ValidationError{Field: f.ID, Reason: "expected select value"}
		}
		for _, opt := range f.Options {
			if s == opt {
				return s, nil
			}
		}
		return nil, &ValidationError{Field: f.ID, Reason: "value is not one of the allowed options"}

	case TypeCheckbox:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			// HTML form payloads send checkbox state as strings
			switch strings.ToLower(v) {
			case "true", "on", "yes", "1":
				return true, nil
			case "false", "off", "no", "0":
				return false, nil
			}
		}
		return nil, &ValidationError{Field: f.ID, Reason: "expected boolean value"}
	}

	return nil, &ValidationError{Field: f.ID, Reason: fmt.Sprintf("unknown field type %q", f.Type)}
}
