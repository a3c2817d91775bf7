package domain

import (
	"errors"
	"testing"
)

func TestValidateIdentity_Valid(t *testing.T) {
	for _, code := range []string{"0926687856", "1710034065"} {
		t.Run(code, func(t *testing.T) {
			if err := ValidateIdentity(code); err != nil {
				t.Errorf("ValidateIdentity(%q) = %v, want nil", code, err)
			}
		})
	}
}

func TestValidateIdentity_Invalid(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"nine digits", "123456789", ErrInvalidFormat},
		{"eleven digits", "12345678901", ErrInvalidFormat},
		{"trailing letter", "171456789A", ErrInvalidFormat},
		{"embedded space", "17100 4065", ErrInvalidFormat},
		{"empty", "", ErrInvalidFormat},
		{"region zero", "0026687856", ErrInvalidRegion},
		{"region too high", "2526687856", ErrInvalidRegion},
		{"bad check digit", "0926687857", ErrInvalidChecksum},
		{"bad check digit 2", "1710034060", ErrInvalidChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentity(tt.code)
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateIdentity(%q) = %v, want %v", tt.code, err, tt.want)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("ValidateIdentity(%q) should return a *ValidationError", tt.code)
			}
		})
	}
}

func TestValidateIdentity_ChecksumZeroRemainder(t *testing.T) {
	// Adjusted products 4+2+4 sum to 10; a sum divisible by 10 demands
	// check digit 0, not 10.
	if err := ValidateIdentity("2220000000"); err != nil {
		t.Fatalf("ValidateIdentity(2220000000) = %v, want nil", err)
	}
}
