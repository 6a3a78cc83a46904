package domain

import (
	"strings"
	"testing"
)

func TestValidateBody(t *testing.T) {
	cases := []struct {
		name          string
		body          string
		hasAttachment bool
		wantErr       bool
	}{
		{"plain text", "hello", false, false},
		{"empty", "", false, true},
		{"whitespace only", "   \n\t ", false, true},
		{"empty with attachment", "", true, false},
		{"at the cap", strings.Repeat("a", MaxMessageLen), false, false},
		{"over the cap", strings.Repeat("a", MaxMessageLen+1), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateBody(tc.body, tc.hasAttachment)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateBody(%q, %v) err = %v, wantErr %v", tc.body, tc.hasAttachment, err, tc.wantErr)
			}
		})
	}
}

func TestValidateBodyTrims(t *testing.T) {
	got, err := ValidateBody("  hi there  ", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hi there" {
		t.Fatalf("got %q, want %q", got, "hi there")
	}
}

func TestValidateUsername(t *testing.T) {
	if err := ValidateUsername("alice"); err != nil {
		t.Fatalf("valid username rejected: %v", err)
	}
	if err := ValidateUsername(""); err == nil {
		t.Fatal("empty username accepted")
	}
	if err := ValidateUsername(strings.Repeat("x", MaxUsernameLen+1)); err == nil {
		t.Fatal("overlong username accepted")
	}
}
