package errors

import (
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "M1", false},
		{"bus bit", "data[3]", false},
		{"hierarchy", "u_core/u_alu/n42", false},
		{"via name", "VIA12_1cut", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"space", "net a", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
		{"paren", "foo(bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName("net", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "tiles/t0.toml", false},
		{"absolute", "/data/tech.toml", false},
		{"empty", "", true},
		{"null byte", "a\x00b", true},
		{"control", "a\x07b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRunID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"3f2a", false},
		{"3F2A9C10-0000-4000-8000-000000000000", false},
		{"", true},
		{"xyz", true},
		{"3f2a9c10-0000-4000-8000-0000000000001", true},
	}

	for _, tt := range tests {
		if err := ValidateRunID(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateRunID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
