package utils

import "strings"

// IsValidEmail reports whether an address looks like a real personal email.
// Addresses containing any of the fake patterns (noreply variants, localhost,
// placeholder domains) are rejected outright; the rest only need an "@" and a
// dot in the domain part.
func IsValidEmail(email string, fakePatterns []string) bool {
	if email == "" {
		return false
	}

	lowered := strings.ToLower(email)
	for _, pattern := range fakePatterns {
		if strings.Contains(lowered, pattern) {
			return false
		}
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}
