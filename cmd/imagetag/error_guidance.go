package main

import (
	"context"
	"errors"
	"net"

	"imagetag/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "invalid_media_type":
			lines = append(lines, "hint: pass --type to declare the media type, or extend uploads.allowed_media_types.")
		case "conflict":
			lines = append(lines, "hint: the image already carries that tag; list it with: imagetag image show <id>")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify IMAGETAG_API_URL points to an imagetag server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase IMAGETAG_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure an imagetag server is running at IMAGETAG_API_URL.",
			"hint: start a local server manually with: imagetag srv",
			"hint: set DATABASE_URL and UPLOADS_PATH to let the CLI start one for you.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
