package server

import (
	"testing"

	"imagetag/internal/models"
)

func TestMediaPolicyResolve(t *testing.T) {
	lenient := NewMediaPolicy(nil, false)
	strict := NewMediaPolicy(nil, true)

	tests := []struct {
		name       string
		policy     MediaPolicy
		declared   string
		sniffed    string
		want       string
		wantSource models.MediaTypeSource
		wantErr    bool
	}{
		{name: "declared wins", policy: lenient, declared: "image/png", sniffed: "image/gif", want: "image/png", wantSource: models.MediaTypeSourceDeclared},
		{name: "declared with params", policy: lenient, declared: "Image/PNG; q=1", sniffed: "image/png", want: "image/png", wantSource: models.MediaTypeSourceDeclared},
		{name: "sniffed when undeclared", policy: lenient, declared: "", sniffed: "image/gif", want: "image/gif", wantSource: models.MediaTypeSourceSniffed},
		{name: "octet-stream counts as undeclared", policy: lenient, declared: "application/octet-stream", sniffed: "image/gif", want: "image/gif", wantSource: models.MediaTypeSourceSniffed},
		{name: "not allowed", policy: lenient, declared: "text/plain", sniffed: "text/plain; charset=utf-8", wantErr: true},
		{name: "undetermined", policy: lenient, declared: "", sniffed: "application/octet-stream", wantErr: true},
		{name: "malformed declared", policy: lenient, declared: "image/", sniffed: "image/png", wantErr: true},
		{name: "strict mismatch", policy: strict, declared: "image/gif", sniffed: "image/png", wantErr: true},
		{name: "strict jpeg alias", policy: strict, declared: "image/jpg", sniffed: "image/jpeg", want: "image/jpg", wantSource: models.MediaTypeSourceDeclared},
		{name: "strict ignores unknown content", policy: strict, declared: "image/png", sniffed: "application/octet-stream", want: "image/png", wantSource: models.MediaTypeSourceDeclared},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, source, err := tc.policy.Resolve(tc.declared, tc.sniffed)
			if tc.wantErr {
				requireAPIError(t, err, 400, "invalid_media_type")
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tc.want || source != tc.wantSource {
				t.Fatalf("expected %s (%s), got %s (%s)", tc.want, tc.wantSource, got, source)
			}
		})
	}
}

func TestMediaPolicyCustomAllowList(t *testing.T) {
	policy := NewMediaPolicy([]string{" image/PNG ", "", "not a type"}, false)
	allowed := policy.Allowed()
	if len(allowed) != 1 || allowed[0] != "image/png" {
		t.Fatalf("unexpected allow-list %v", allowed)
	}
	if _, _, err := policy.Resolve("image/gif", ""); err == nil {
		t.Fatal("expected gif to be rejected")
	}
}

func TestDetectMediaType(t *testing.T) {
	if got := detectMediaType(pngBytes); got != "image/png" {
		t.Fatalf("expected image/png, got %s", got)
	}
	if got := detectMediaType(gifBytes); got != "image/gif" {
		t.Fatalf("expected image/gif, got %s", got)
	}
}
