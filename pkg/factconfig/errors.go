package factconfig

import "fmt"

// ConfigError wraps a validation failure with the name of the option that
// caused it, so a caller can log or exit with an actionable message at
// startup rather than a bare error string.
type ConfigError struct {
	Option string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration option %s: %v", e.Option, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads Config from the environment and validates it, returning a
// *ConfigError on the first invalid option. Callers at startup should
// treat a non-nil error as fatal.
func Load() (Config, error) {
	cfg := FromEnv()
	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return Config{}, &ConfigError{Option: optionFromError(err), Err: err}
	}
	return cfg, nil
}

// optionFromError extracts the leading ALL_CAPS token from a validator
// error message, falling back to "unknown" when none is found.
func optionFromError(err error) string {
	msg := err.Error()
	start := -1
	for i, r := range msg {
		if r >= 'A' && r <= 'Z' {
			if start == -1 {
				start = i
			}
		} else if r == '_' {
			continue
		} else if start != -1 {
			return msg[start:i]
		}
	}
	if start != -1 {
		return msg[start:]
	}
	return "unknown"
}
