package account

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	// ErrPersistence marks store failures. The cause is logged, never shown.
	ErrPersistence = errors.New("persistence failure")

	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// ValidationError lists the rejected request fields and why.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// validate runs v.Validate and converts rule violations into a
// *ValidationError. Internal rule errors are returned wrapped.
func validate(v validation.Validatable) error {
	err := v.Validate()
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return fmt.Errorf("validate request: %w", err)
	}

	fields := make(map[string]string)
	flatten("", errs, fields)
	return &ValidationError{Fields: fields}
}

func flatten(prefix string, errs validation.Errors, out map[string]string) {
	for field, err := range errs {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}

		var nested validation.Errors
		if errors.As(err, &nested) {
			flatten(key, nested, out)
			continue
		}
		out[key] = err.Error()
	}
}

func fieldError(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}
