package factconfig

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks a Config for internally-consistent, in-range values
// before it is wired into the runtime, using struct tags on Config rather
// than tarsy's hand-written per-section functions — the teacher's
// validator.go shape (one ValidateAll entry point, errors naming the
// offending field and its valid range) is preserved, only the field-level
// checks are declarative.
type Validator struct {
	cfg Config
	v   *validator.Validate
}

// NewValidator builds a Validator for cfg.
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg, v: validator.New()}
}

// ValidateAll validates every field and returns the first failure, naming
// the offending option by its environment variable name.
func (v *Validator) ValidateAll() error {
	err := v.v.Struct(v.cfg)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fe := fieldErrs[0]
	option := camelToSnake(fe.StructField())
	return fmt.Errorf("%s must satisfy %q, got %v", option, constraintDescription(fe), fe.Value())
}

func constraintDescription(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
	}
	return fe.Tag()
}

var (
	camelBoundary1 = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	camelBoundary2 = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
)

// camelToSnake converts a Go exported field name ("SQLPoolMaxConnections")
// into its environment-variable spelling ("SQL_POOL_MAX_CONNECTIONS").
func camelToSnake(name string) string {
	s := camelBoundary2.ReplaceAllString(name, "${1}_${2}")
	s = camelBoundary1.ReplaceAllString(s, "${1}_${2}")
	return strings.ToUpper(s)
}
