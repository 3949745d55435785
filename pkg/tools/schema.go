package tools

import (
	"fmt"
	"regexp"
)

// ParamType enumerates the JSON-schema-ish types a tool parameter may take
// (spec §4.4).
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

// FieldSchema constrains one named argument.
type FieldSchema struct {
	Type        ParamType
	Description string
	Required    bool
	Pattern     string // regex, string fields only
	MinLength   *int
	MaxLength   *int
	Minimum     *float64
	Maximum     *float64
	Enum        []any
}

// ParameterSchema is the full schema for a tool's arguments: a JSON-object
// shape with named, typed, constrained properties (spec §4.4, §6.4).
type ParameterSchema struct {
	Properties map[string]FieldSchema
	Required   []string
}

// Validate checks schema for internal consistency at registration time
// (spec §4.4: "Parameter schemas validated at registration").
func (s ParameterSchema) Validate() error {
	for name, f := range s.Properties {
		switch f.Type {
		case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeObject, TypeArray:
		default:
			return fmt.Errorf("field %q: unknown type %q", name, f.Type)
		}
		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				return fmt.Errorf("field %q: invalid pattern: %w", name, err)
			}
		}
	}
	for _, req := range s.Required {
		if _, ok := s.Properties[req]; !ok {
			return fmt.Errorf("required field %q is not defined in properties", req)
		}
	}
	return nil
}

// ValidateArgs validates args against the schema, returning every violation
// found (not just the first), per spec §4.4 step 2's "list of field errors".
func (s ParameterSchema) ValidateArgs(args map[string]any) []FieldError {
	var errs []FieldError

	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	for name, f := range s.Properties {
		if f.Required {
			required[name] = true
		}
	}

	for name := range required {
		if _, ok := args[name]; !ok {
			errs = append(errs, FieldError{Field: name, Message: "required field is missing"})
		}
	}

	for name, val := range args {
		field, ok := s.Properties[name]
		if !ok {
			continue // unknown fields are ignored, not rejected
		}
		errs = append(errs, validateField(name, field, val)...)
	}

	return errs
}

func validateField(name string, f FieldSchema, val any) []FieldError {
	var errs []FieldError

	if !typeMatches(f.Type, val) {
		return []FieldError{{Field: name, Message: fmt.Sprintf("expected type %s", f.Type)}}
	}

	switch f.Type {
	case TypeString:
		s := val.(string)
		if f.MinLength != nil && len(s) < *f.MinLength {
			errs = append(errs, FieldError{Field: name, Message: fmt.Sprintf("must be at least %d characters", *f.MinLength)})
		}
		if f.MaxLength != nil && len(s) > *f.MaxLength {
			errs = append(errs, FieldError{Field: name, Message: fmt.Sprintf("must be at most %d characters", *f.MaxLength)})
		}
		if f.Pattern != "" {
			if ok, _ := regexp.MatchString(f.Pattern, s); !ok {
				errs = append(errs, FieldError{Field: name, Message: fmt.Sprintf("must match pattern %q", f.Pattern)})
			}
		}
	case TypeInteger, TypeNumber:
		n := toFloat(val)
		if f.Minimum != nil && n < *f.Minimum {
			errs = append(errs, FieldError{Field: name, Message: fmt.Sprintf("must be >= %v", *f.Minimum)})
		}
		if f.Maximum != nil && n > *f.Maximum {
			errs = append(errs, FieldError{Field: name, Message: fmt.Sprintf("must be <= %v", *f.Maximum)})
		}
	}

	if len(f.Enum) > 0 && !enumContains(f.Enum, val) {
		errs = append(errs, FieldError{Field: name, Message: "value is not one of the allowed enum values"})
	}

	return errs
}

func typeMatches(t ParamType, val any) bool {
	switch t {
	case TypeString:
		_, ok := val.(string)
		return ok
	case TypeBoolean:
		_, ok := val.(bool)
		return ok
	case TypeInteger:
		switch v := val.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == float64(int64(v))
		default:
			return false
		}
	case TypeNumber:
		switch val.(type) {
		case int, int32, int64, float32, float64:
			return true
		default:
			return false
		}
	case TypeObject:
		_, ok := val.(map[string]any)
		return ok
	case TypeArray:
		_, ok := val.([]any)
		return ok
	default:
		return false
	}
}

func toFloat(val any) float64 {
	switch v := val.(type) {
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}

func enumContains(enum []any, val any) bool {
	for _, e := range enum {
		if fmt.Sprint(e) == fmt.Sprint(val) {
			return true
		}
	}
	return false
}

// ExportedSchema is the LLM-facing JSON shape (spec §6.4):
// {name, description, parameters: {type: "object", properties, required}}.
type ExportedSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ExportedParams `json:"parameters"`
}

// ExportedParams mirrors a JSON-schema "object" node.
type ExportedParams struct {
	Type       string                    `json:"type"`
	Properties map[string]ExportedField `json:"properties"`
	Required   []string                  `json:"required"`
}

// ExportedField is the wire shape of one FieldSchema.
type ExportedField struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// Export converts the internal schema into the LLM-facing shape.
func (s ParameterSchema) Export(name, description string) ExportedSchema {
	props := make(map[string]ExportedField, len(s.Properties))
	for k, f := range s.Properties {
		props[k] = ExportedField{Type: string(f.Type), Description: f.Description, Pattern: f.Pattern, Enum: f.Enum}
	}
	return ExportedSchema{
		Name:        name,
		Description: description,
		Parameters: ExportedParams{
			Type:       "object",
			Properties: props,
			Required:   s.Required,
		},
	}
}
