package auth

import (
	"strings"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "valid", raw: "Asha.K@College.EDU", want: "asha.k@college.edu"},
		{name: "trim", raw: "  hr+jobs@acme.co.in  ", want: "hr+jobs@acme.co.in"},
		{name: "no domain dot", raw: "asha@localhost", wantErr: true},
		{name: "space", raw: "as ha@college.edu", wantErr: true},
		{name: "missing at", raw: "college.edu", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeEmail(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("NormalizeEmail(%q)=%q want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("password-123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !VerifyPassword(hash, "password-123") {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatal("expected wrong password to fail")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Fatal("expected short password to fail")
	}
	if err := ValidatePassword(strings.Repeat("x", maxPasswordLength+1)); err == nil {
		t.Fatal("expected overlong password to fail")
	}
	if err := ValidatePassword("long-enough"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
