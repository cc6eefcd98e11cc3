// Package password implements tenant-policy validation and storage hashing
// for credentials.
package password

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"aureon/internal/tenant/models"
	dErrors "aureon/pkg/domain-errors"
)

// hashCost resists offline brute force at current hardware speeds.
const hashCost = 12

// Validate checks a candidate password against the tenant's policy. All
// violations are collected so the caller can show the complete list, not
// just the first failure.
func Validate(password string, policy models.PasswordPolicy) error {
	var violations []string

	if len(password) < policy.MinLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", policy.MinLength))
	}
	if policy.RequireUppercase && !containsClass(password, unicode.IsUpper) {
		violations = append(violations, "must contain an uppercase letter")
	}
	if policy.RequireLowercase && !containsClass(password, unicode.IsLower) {
		violations = append(violations, "must contain a lowercase letter")
	}
	if policy.RequireNumbers && !containsClass(password, unicode.IsDigit) {
		violations = append(violations, "must contain a number")
	}
	if policy.RequireSpecial && !containsSpecial(password) {
		violations = append(violations, "must contain a special character")
	}

	if len(violations) > 0 {
		return dErrors.New(dErrors.CodeValidation, "password "+strings.Join(violations, "; "))
	}
	return nil
}

// Hash produces the salted storage hash for a password.
func Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Compare reports whether the password matches the stored hash. The
// comparison is constant-time inside bcrypt.
func Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func containsClass(s string, is func(rune) bool) bool {
	for _, r := range s {
		if is(r) {
			return true
		}
	}
	return false
}

func containsSpecial(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
