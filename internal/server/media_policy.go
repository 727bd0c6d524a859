package server

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"imagetag/internal/models"
)

// sniffLen is how many leading bytes are inspected to detect content type.
const sniffLen = 3072

var mediaTypeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
}

// MediaPolicy decides which upload media types are accepted.
type MediaPolicy struct {
	allowed        map[string]struct{}
	rejectMismatch bool
}

// NewMediaPolicy builds a policy. An empty allow-list falls back to
// models.DefaultAllowedMediaTypes.
func NewMediaPolicy(allowed []string, rejectMismatch bool) MediaPolicy {
	if len(allowed) == 0 {
		allowed = models.DefaultAllowedMediaTypes
	}
	normalized := map[string]struct{}{}
	for _, raw := range allowed {
		mediaType, err := models.NormalizeMediaType(raw)
		if err != nil || mediaType == "" {
			continue
		}
		normalized[mediaType] = struct{}{}
	}
	return MediaPolicy{allowed: normalized, rejectMismatch: rejectMismatch}
}

// Allowed returns the sorted allow-list.
func (p MediaPolicy) Allowed() []string {
	out := make([]string, 0, len(p.allowed))
	for mediaType := range p.allowed {
		out = append(out, mediaType)
	}
	sort.Strings(out)
	return out
}

// Resolve picks the media type to store for an upload. The declared type
// wins; the sniffed type is used when nothing useful was declared.
func (p MediaPolicy) Resolve(declared, sniffed string) (string, models.MediaTypeSource, error) {
	declaredNormalized, err := models.NormalizeMediaType(declared)
	if err != nil {
		return "", models.MediaTypeSourceUnknown, invalidMediaType(err)
	}
	if declaredNormalized == models.FallbackMediaType {
		declaredNormalized = ""
	}
	sniffedNormalized, err := models.NormalizeMediaType(sniffed)
	if err != nil {
		sniffedNormalized = ""
	}

	if p.rejectMismatch && declaredNormalized != "" && sniffedNormalized != "" &&
		sniffedNormalized != models.FallbackMediaType &&
		canonicalMediaType(declaredNormalized) != canonicalMediaType(sniffedNormalized) {
		return "", models.MediaTypeSourceUnknown, invalidMediaType(
			fmt.Errorf("declared media type %s does not match content type %s", declaredNormalized, sniffedNormalized))
	}

	mediaType, source := declaredNormalized, models.MediaTypeSourceDeclared
	if mediaType == "" {
		mediaType, source = sniffedNormalized, models.MediaTypeSourceSniffed
	}
	if mediaType == "" {
		return "", models.MediaTypeSourceUnknown, invalidMediaType(fmt.Errorf("media type could not be determined"))
	}
	if _, ok := p.allowed[mediaType]; !ok {
		return "", source, invalidMediaType(fmt.Errorf("media type %s is not allowed (allowed: %s)", mediaType, strings.Join(p.Allowed(), ", ")))
	}
	return mediaType, source, nil
}

func canonicalMediaType(mediaType string) string {
	if alias, ok := mediaTypeAliases[mediaType]; ok {
		return alias
	}
	return mediaType
}

func detectMediaType(head []byte) string {
	return mimetype.Detect(head).String()
}
