package auth

import (
	"fmt"
	"os"
	"strings"
)

// LoadCredential returns the inline token when set, otherwise the trimmed
// contents of the credential file.
func LoadCredential(token, file string) (string, error) {
	if t := strings.TrimSpace(token); t != "" {
		return t, nil
	}
	if file == "" {
		return "", ErrMissingCredential
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read credential file: %w", err)
	}
	t := strings.TrimSpace(string(data))
	if t == "" {
		return "", ErrMissingCredential
	}
	return t, nil
}
