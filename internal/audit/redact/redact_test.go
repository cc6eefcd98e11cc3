package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSensitive(t *testing.T) {
	for _, name := range []string{
		"password", "password_hash", "token", "secret", "api_key",
		"ssn", "social_security", "credit_card", "cvv", "pin",
		"access_token", "refresh_token", "mfa_secret", "recovery_codes",
	} {
		assert.True(t, IsSensitive(name), name)
	}

	assert.True(t, IsSensitive("PASSWORD"), "matching is case-insensitive")
	assert.True(t, IsSensitive("Api_Key"))

	assert.False(t, IsSensitive("email"))
	assert.False(t, IsSensitive("passwords"), "only exact names match")
}

func TestMapRedactsRecursively(t *testing.T) {
	in := map[string]any{
		"email":    "jane@example.com",
		"password": "hunter2",
		"billing": map[string]any{
			"credit_card": "4111111111111111",
			"plan":        "pro",
		},
	}

	out := Map(in)

	assert.Equal(t, "jane@example.com", out["email"])
	assert.Equal(t, Placeholder, out["password"])
	billing := out["billing"].(map[string]any)
	assert.Equal(t, Placeholder, billing["credit_card"])
	assert.Equal(t, "pro", billing["plan"])
}

func TestMapDoesNotMutateInput(t *testing.T) {
	in := map[string]any{
		"ssn":     "123-45-6789",
		"profile": map[string]any{"pin": "0000"},
	}

	_ = Map(in)

	assert.Equal(t, "123-45-6789", in["ssn"])
	assert.Equal(t, "0000", in["profile"].(map[string]any)["pin"])
}

func TestMapNil(t *testing.T) {
	assert.Nil(t, Map(nil))
}
