package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imagetag/internal/api"
	"imagetag/internal/blobstore"
	"imagetag/internal/config"
	"imagetag/internal/models"
	"imagetag/internal/server"
	"imagetag/internal/store"
)

// A 1x1 transparent PNG.
var testPNG, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func newCLITestConfig(t *testing.T) *config.Config {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "cli.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blobstore.NewLocalFS(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("open blobs: %v", err)
	}

	srv := server.New("127.0.0.1:0", server.Deps{
		Metadata: st,
		Blobs:    blobs,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.APIURL = ts.URL
	cfg.LogLevel = "error"
	return &cfg
}

// runCLI executes the root command and returns what it wrote to stdout.
func runCLI(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	t.Setenv(logLevelEnvKey, "")
	prevLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prevLogger) })

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	prevStdout := os.Stdout
	os.Stdout = w

	captured := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		captured <- buf.String()
	}()

	cmd := newRootCmd(cfg)
	cmd.SetArgs(args)
	runErr := cmd.ExecuteContext(context.Background())

	os.Stdout = prevStdout
	_ = w.Close()
	out := <-captured
	_ = r.Close()
	return out, runErr
}

func mustRunCLI(t *testing.T, cfg *config.Config, args ...string) string {
	t.Helper()
	out, err := runCLI(t, cfg, args...)
	if err != nil {
		t.Fatalf("imagetag %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCLIImageAndTagWorkflow(t *testing.T) {
	cfg := newCLITestConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "pixel.png")
	if err := os.WriteFile(path, testPNG, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var image models.Image
	if err := json.Unmarshal([]byte(mustRunCLI(t, cfg, "--json", "image", "upload", path)), &image); err != nil {
		t.Fatalf("decode upload output: %v", err)
	}
	if image.Filename != "pixel.png" || image.MimeType != "image/png" {
		t.Fatalf("unexpected upload result %+v", image)
	}

	var tag models.Tag
	if err := json.Unmarshal([]byte(mustRunCLI(t, cfg, "--json", "tag", "add", image.ID, "sunset")), &tag); err != nil {
		t.Fatalf("decode tag output: %v", err)
	}
	if tag.Name != "sunset" {
		t.Fatalf("unexpected tag %+v", tag)
	}

	show := mustRunCLI(t, cfg, "image", "show", image.ID)
	if !strings.Contains(show, "filename: pixel.png") || !strings.Contains(show, "sunset ("+tag.ID+")") {
		t.Fatalf("unexpected show output:\n%s", show)
	}

	found := mustRunCLI(t, cfg, "--yaml", "search", tag.ID)
	if !strings.Contains(found, "filename: pixel.png") || !strings.Contains(found, "mime_type: image/png") {
		t.Fatalf("unexpected yaml search output:\n%s", found)
	}

	list := mustRunCLI(t, cfg, "tag", "list")
	if strings.TrimSpace(list) != tag.ID+"\tsunset" {
		t.Fatalf("unexpected tag list %q", list)
	}

	fetched := filepath.Join(dir, "copy.png")
	mustRunCLI(t, cfg, "image", "fetch", image.ID, "-o", fetched)
	data, err := os.ReadFile(fetched)
	if err != nil {
		t.Fatalf("read fetched: %v", err)
	}
	if !bytes.Equal(data, testPNG) {
		t.Fatal("fetched bytes differ from upload")
	}

	var report api.ReconcileResponse
	if err := json.Unmarshal([]byte(mustRunCLI(t, cfg, "--json", "reconcile")), &report); err != nil {
		t.Fatalf("decode reconcile: %v", err)
	}
	if !report.DryRun || len(report.OrphanBlobs) != 0 || len(report.MissingBlobs) != 0 {
		t.Fatalf("unexpected reconcile report %+v", report)
	}

	mustRunCLI(t, cfg, "image", "rm", image.ID)
	if out := mustRunCLI(t, cfg, "--json", "tag", "list"); strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected tags collected with image, got %q", out)
	}
}

func TestCLISurfacesAPIErrors(t *testing.T) {
	cfg := newCLITestConfig(t)
	_, err := runCLI(t, cfg, "image", "show", "not-a-uuid")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 400 {
		t.Fatalf("expected 400 api error, got %v", err)
	}
}

func TestCLIRejectsConflictingOutputFlags(t *testing.T) {
	cfg := newCLITestConfig(t)
	if _, err := runCLI(t, cfg, "--json", "--yaml", "tag", "list"); err == nil {
		t.Fatal("expected error for --json with --yaml")
	}
}

func TestCLIMigrateInspect(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseURL = filepath.Join(t.TempDir(), "migrate.db")

	out := mustRunCLI(t, &cfg, "--json", "migrate", "--inspect")
	var plan store.MigrationStatus
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.CurrentVersion != 0 || len(plan.Pending) == 0 {
		t.Fatalf("expected pending migrations on a fresh database, got %+v", plan)
	}

	out = mustRunCLI(t, &cfg, "--json", "migrate")
	plan = store.MigrationStatus{}
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan after migrate: %v", err)
	}
	if plan.CurrentVersion != plan.AvailableVersion || len(plan.Pending) != 0 {
		t.Fatalf("expected fully migrated database, got %+v", plan)
	}
}
