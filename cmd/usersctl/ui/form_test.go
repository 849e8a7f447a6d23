package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldValidators(t *testing.T) {
	tests := []struct {
		name     string
		validate func(string) error
		input    string
		wantErr  bool
	}{
		{"name ok", validateName, "Ann", false},
		{"name blank", validateName, "   ", true},
		{"name too long", validateName, strings.Repeat("a", 256), true},
		{"email ok", validateEmail, "ann@example.com", false},
		{"email missing at", validateEmail, "ann.example.com", true},
		{"password ok", validatePassword, "qwerty123", false},
		{"password short", validatePassword, "qwerty", true},
		{"password long", validatePassword, strings.Repeat("p", 73), true},
		{"dob empty", validateDob, "", false},
		{"dob ok", validateDob, "1990-01-01", false},
		{"dob wrong layout", validateDob, "01/01/1990", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
