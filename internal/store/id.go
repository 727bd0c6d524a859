package store

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a new random image or tag id.
func GenerateID() string {
	return uuid.NewString()
}

// CanonicalID parses raw as a UUID and returns its canonical form.
func CanonicalID(raw string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
