package auth

import (
	"fmt"
	"strings"
)

// ValidateSecret rejects signing secrets that are short or trivially guessable.
func ValidateSecret(secret string, minLength int) error {
	if minLength == 0 {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("secret must be at least %d characters long", minLength)
	}

	lower := strings.ToLower(secret)
	for _, weak := range []string{"changeme", "secret", "password", "mailpilot"} {
		if strings.Trim(lower, "0123456789-_") == weak || lower == strings.Repeat(weak, len(lower)/len(weak)) {
			return fmt.Errorf("secret is too common")
		}
	}

	if isRepeatingChar(secret) {
		return fmt.Errorf("secret cannot be a single repeating character")
	}

	return nil
}

// isRepeatingChar checks if s is just the same character repeated
func isRepeatingChar(s string) bool {
	if len(s) == 0 {
		return false
	}
	runes := []rune(s)
	first := runes[0]
	for _, r := range runes[1:] {
		if r != first {
			return false
		}
	}
	return true
}
