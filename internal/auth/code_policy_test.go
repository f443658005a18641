package auth

import (
	"testing"

	"pgregory.net/rapid"
)

func TestCodePolicy_ValidateNewCode(t *testing.T) {
	policy := NewCodePolicy()

	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"empty", "", true},
		{"five chars", "abcde", true},
		{"exactly six chars", "abcdef", false},
		{"long code", "a-much-longer-access-code", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := policy.ValidateNewCode(tt.code)
			if tt.wantErr && len(errs) == 0 {
				t.Errorf("ValidateNewCode(%q) should fail", tt.code)
			}
			if !tt.wantErr && len(errs) > 0 {
				t.Errorf("ValidateNewCode(%q) should pass, got %v", tt.code, errs)
			}
		})
	}
}

func TestCodePolicy_HashAndVerify(t *testing.T) {
	policy := NewCodePolicy()

	hash, err := policy.HashCode("correct-horse")
	if err != nil {
		t.Fatalf("HashCode failed: %v", err)
	}
	if hash == "correct-horse" {
		t.Fatal("hash must not equal the plaintext code")
	}

	if !policy.VerifyCode("correct-horse", hash) {
		t.Error("correct code must verify against its own hash")
	}
	if policy.VerifyCode("battery-staple", hash) {
		t.Error("wrong code must not verify")
	}
	if policy.VerifyCode("", hash) {
		t.Error("empty code must not verify")
	}
}

// Property: verification round-trips for arbitrary valid codes and never
// accepts a different code.
func TestCodePolicy_RoundTrip_Property(t *testing.T) {
	policy := NewCodePolicy()

	rapid.Check(t, func(t *rapid.T) {
		code := rapid.StringMatching(`[a-zA-Z0-9!@#$%^&*]{6,24}`).Draw(t, "code")
		other := rapid.StringMatching(`[a-zA-Z0-9!@#$%^&*]{6,24}`).Draw(t, "other")

		hash, err := policy.HashCode(code)
		if err != nil {
			t.Fatalf("HashCode failed: %v", err)
		}

		if !policy.VerifyCode(code, hash) {
			t.Fatalf("code %q must verify against its own hash", code)
		}
		if other != code && policy.VerifyCode(other, hash) {
			t.Fatalf("code %q must not verify against hash of %q", other, code)
		}
	})
}
