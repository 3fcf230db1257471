package utils

import (
	"errors"
	"testing"
)

func TestValidatePlate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"ab12cd", "AB12CD", nil},
		{"AB12CD", "AB12CD", nil},
		{" ab 12 cd ", "AB12CD", nil},
		{"x", "X", nil},
		{"AB12CDE", "", ErrPlateTooLong},
		{"", "", ErrPlateEmpty},
		{"   ", "", ErrPlateEmpty},
		{"AB-12", "", ErrPlateChars},
		{"ÄB12", "", ErrPlateChars},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidatePlate(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidatePlate(%q) err = %v, want %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidatePlate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizePlateIdempotent(t *testing.T) {
	for _, p := range []string{"ab12cd", "AB 12 CD", "\tz9\n", "Mixed1", ""} {
		once := NormalizePlate(p)
		if twice := NormalizePlate(once); twice != once {
			t.Errorf("NormalizePlate not idempotent for %q: %q then %q", p, once, twice)
		}
	}
}
