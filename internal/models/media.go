package models

import (
	"fmt"
	"mime"
	"strings"
)

// MediaTypeSource records how an upload's media type was determined.
type MediaTypeSource string

const (
	MediaTypeSourceDeclared MediaTypeSource = "declared"
	MediaTypeSourceSniffed  MediaTypeSource = "sniffed"
	MediaTypeSourceUnknown  MediaTypeSource = "unknown"
)

// FallbackMediaType is served when a stored media type is empty.
const FallbackMediaType = "application/octet-stream"

// DefaultAllowedMediaTypes is the upload allow-list used when none is configured.
var DefaultAllowedMediaTypes = []string{
	"image/gif",
	"image/jpeg",
	"image/jpg",
	"image/png",
}

// NormalizeMediaType strips parameters and lowercases a media type.
// An empty input yields an empty result.
func NormalizeMediaType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", fmt.Errorf("invalid media type %q", raw)
	}
	return strings.ToLower(strings.TrimSpace(parsed)), nil
}
