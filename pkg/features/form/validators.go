package form

import (
	"fmt"
	"regexp"

	"github.com/vango-dev/draftform/pkg/record"
)

// Validator checks a single field value.
type Validator interface {
	// Validate returns nil if value is acceptable, or an error carrying the
	// human-readable message otherwise.
	Validate(value any) error
}

// ValidatorFunc is a function that implements Validator.
type ValidatorFunc func(value any) error

func (f ValidatorFunc) Validate(value any) error {
	return f(value)
}

// ValidationError represents a rule failure. Message is what ends up in a
// Result.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// ----------------------------------------------------------------------------
// String Validators
// ----------------------------------------------------------------------------

// Required fails for nil and blank strings. Numbers, including 0, pass.
func Required(msg string) Validator {
	if msg == "" {
		msg = "This field is required"
	}
	return ValidatorFunc(func(value any) error {
		if record.IsEmpty(value) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MinLength fails when a non-empty string has fewer than n characters.
// Empty values pass so that Required owns the "missing" message.
func MinLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at least %d characters", n)
	}
	return ValidatorFunc(func(value any) error {
		s := record.ToString(value)
		if s == "" {
			return nil
		}
		if len([]rune(s)) < n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MaxLength fails when a string has more than n characters.
func MaxLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at most %d characters", n)
	}
	return ValidatorFunc(func(value any) error {
		if len([]rune(record.ToString(value))) > n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// Pattern fails when a non-empty value does not match the expression.
// It panics if pattern does not compile, like regexp.MustCompile.
func Pattern(pattern string, msg string) Validator {
	re := regexp.MustCompile(pattern)
	if msg == "" {
		msg = "Invalid format"
	}
	return ValidatorFunc(func(value any) error {
		s := record.ToString(value)
		if s == "" {
			return nil
		}
		if !re.MatchString(s) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// ----------------------------------------------------------------------------
// Numeric Validators
// ----------------------------------------------------------------------------

// NotOneOf fails when the value is numerically equal to any forbidden entry.
// It is used to force a selection away from a "none" sentinel such as 0.
// Empty values pass; pair with Required for mandatory selections.
func NotOneOf(forbidden []float64, msg string) Validator {
	if msg == "" {
		msg = "Please choose a value"
	}
	set := make(map[float64]struct{}, len(forbidden))
	for _, f := range forbidden {
		set[f] = struct{}{}
	}
	return ValidatorFunc(func(value any) error {
		if record.IsEmpty(value) {
			return nil
		}
		n, ok := record.ToNumber(value)
		if !ok {
			return nil
		}
		if _, bad := set[n]; bad {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// IsNumber fails when a non-empty value cannot be read as a number.
func IsNumber(msg string) Validator {
	if msg == "" {
		msg = "Must be a number"
	}
	return ValidatorFunc(func(value any) error {
		if record.IsEmpty(value) {
			return nil
		}
		if _, ok := record.ToNumber(value); !ok {
			return ValidationError{Message: msg}
		}
		return nil
	})
}
