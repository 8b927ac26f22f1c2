package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var fakePatterns = []string{
	"noreply",
	"no-reply",
	"donotreply",
	"users.noreply.github.com",
	"localhost",
	"example.com",
	"test.com",
}

func TestIsValidEmail(t *testing.T) {
	testCases := []struct {
		name  string
		email string
		want  bool
	}{
		{name: "real address", email: "real.person@gmail.com", want: true},
		{name: "github noreply", email: "noreply@users.noreply.github.com", want: false},
		{name: "noreply variant", email: "12345+user@users.noreply.github.com", want: false},
		{name: "no-reply prefix", email: "no-reply@corp.io", want: false},
		{name: "localhost", email: "dev@localhost", want: false},
		{name: "placeholder domain", email: "someone@example.com", want: false},
		{name: "missing at sign", email: "not-an-email", want: false},
		{name: "missing domain dot", email: "user@internal", want: false},
		{name: "empty", email: "", want: false},
		{name: "uppercase fake pattern", email: "NOREPLY@corp.io", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsValidEmail(tc.email, fakePatterns))
		})
	}
}

func TestIsValidEmailSelectsRealOverFake(t *testing.T) {
	candidates := []string{"noreply@users.noreply.github.com", "real.person@gmail.com"}

	var selected string
	for _, email := range candidates {
		if IsValidEmail(email, fakePatterns) {
			selected = email
			break
		}
	}

	assert.Equal(t, "real.person@gmail.com", selected)
}
