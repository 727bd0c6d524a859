package server

import (
	"fmt"
	"path"
	"strings"

	"imagetag/internal/store"
)

func requireID(raw, name string) (string, error) {
	id, ok := store.CanonicalID(raw)
	if !ok {
		return "", badRequestCode(fmt.Errorf("invalid %s", name), ErrCodeInvalidID)
	}
	return id, nil
}

func requireIDs(raw []string, name string) ([]string, error) {
	ids := make([]string, 0, len(raw))
	for _, value := range raw {
		id, err := requireID(value, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// validateTagName only rejects the empty string. Names are otherwise kept
// byte for byte, so " x" and "x" are different tags.
func validateTagName(value string) error {
	if value == "" {
		return badRequestCode(fmt.Errorf("tag name is required"), ErrCodeMissingRequired)
	}
	return nil
}

// baseFilename strips any client-side directory from an uploaded name.
func baseFilename(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, `\`, "/"))
	if value == "" {
		return ""
	}
	base := path.Base(value)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
