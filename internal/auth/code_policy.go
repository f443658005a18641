package auth

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinCodeLength is the minimum required access code length
	MinCodeLength = 6
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 12
)

// CodeValidationIssue represents a specific access code validation failure
type CodeValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CodePolicy handles access code validation and hashing. bcrypt comparison
// is constant-time, which also covers the timing side channel on verify.
type CodePolicy struct{}

// NewCodePolicy creates a new CodePolicy instance
func NewCodePolicy() *CodePolicy {
	return &CodePolicy{}
}

// ValidateNewCode checks whether a candidate access code is acceptable.
// Returns a list of validation errors (empty if the code is valid).
func (p *CodePolicy) ValidateNewCode(code string) []CodeValidationIssue {
	var errs []CodeValidationIssue

	if len(code) < MinCodeLength {
		errs = append(errs, CodeValidationIssue{
			Field:   "new_code",
			Message: "Access code must be at least 6 characters long",
		})
	}

	return errs
}

// HashCode hashes an access code with bcrypt
func (p *CodePolicy) HashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyCode compares a submitted access code against the stored hash
func (p *CodePolicy) VerifyCode(code, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
