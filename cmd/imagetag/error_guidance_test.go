package main

import (
	"context"
	"fmt"
	"net"
	"testing"

	"imagetag/internal/api"
)

func TestFormatCLIError_NetworkGuidance(t *testing.T) {
	err := &net.DNSError{Err: "dial tcp: connection refused", Name: "127.0.0.1", IsTemporary: true}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: ensure an imagetag server is running at IMAGETAG_API_URL.") {
		t.Fatalf("expected connectivity guidance, got %v", lines)
	}
	if !containsLine(lines, "hint: start a local server manually with: imagetag srv") {
		t.Fatalf("expected manual-start guidance, got %v", lines)
	}
}

func TestFormatCLIError_APIUnknownServiceGuidance(t *testing.T) {
	err := &api.APIError{Status: 404, Message: "api error: 404 Not Found"}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: verify IMAGETAG_API_URL points to an imagetag server.") {
		t.Fatalf("expected api-url guidance, got %v", lines)
	}
}

func TestFormatCLIError_MediaTypeGuidance(t *testing.T) {
	err := &api.APIError{Status: 400, Code: "invalid_media_type", Message: "media type text/plain is not allowed"}
	lines := formatCLIError(err)
	if lines[0] != "invalid_media_type: media type text/plain is not allowed" {
		t.Fatalf("expected error first, got %v", lines)
	}
	if !containsLine(lines, "hint: pass --type to declare the media type, or extend uploads.allowed_media_types.") {
		t.Fatalf("expected media type guidance, got %v", lines)
	}
}

func TestFormatCLIError_APIInternalGuidance(t *testing.T) {
	err := fmt.Errorf("upload: %w", &api.APIError{Status: 500, Code: "internal", Message: "internal error"})
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: server returned an internal error; check server logs for details.") {
		t.Fatalf("expected internal-error guidance, got %v", lines)
	}
}

func TestFormatCLIError_Timeout(t *testing.T) {
	lines := formatCLIError(context.DeadlineExceeded)
	if !containsLine(lines, "hint: request timed out; check server health or increase IMAGETAG_HTTP_TIMEOUT.") {
		t.Fatalf("expected timeout guidance, got %v", lines)
	}
}

func containsLine(lines []string, expected string) bool {
	for _, line := range lines {
		if line == expected {
			return true
		}
	}
	return false
}
