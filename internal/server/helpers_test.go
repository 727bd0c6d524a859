package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"imagetag/internal/blobstore"
	"imagetag/internal/models"
	"imagetag/internal/store"
)

// A 1x1 transparent PNG.
var pngBytes = mustDecodeBase64("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

// A 1x1 GIF.
var gifBytes = mustDecodeBase64("R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

func mustDecodeBase64(s string) []byte {
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	store  *store.Store
	blobs  *blobstore.LocalFS
	server *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithBlobs(t, nil, UploadOptions{})
}

// newTestEnvWithBlobs opens a temp SQLite store and a temp blob root. When
// wrap is set, the server sees wrap(localFS) instead of the plain store.
func newTestEnvWithBlobs(t *testing.T, wrap func(blobstore.BlobStore) blobstore.BlobStore, uploads UploadOptions) *testEnv {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "server_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})

	fs, err := blobstore.NewLocalFS(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	var blobs blobstore.BlobStore = fs
	if wrap != nil {
		blobs = wrap(fs)
	}

	srv := New("127.0.0.1:0", Deps{Metadata: st, Blobs: blobs, Logger: discardLogger(), Uploads: uploads})
	return &testEnv{store: st, blobs: fs, server: srv}
}

func (e *testEnv) createImage(t *testing.T, filename string) models.Image {
	t.Helper()
	image, err := e.server.images.Create(context.Background(), CreateImageInput{Filename: filename, DeclaredMediaType: "image/png"}, bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("create image %s: %v", filename, err)
	}
	return image
}

func (e *testEnv) addTag(t *testing.T, imageID, name string) models.Tag {
	t.Helper()
	tag, err := e.server.tags.AddTag(context.Background(), imageID, name)
	if err != nil {
		t.Fatalf("add tag %s: %v", name, err)
	}
	return tag
}

func (e *testEnv) tagNames(t *testing.T) []string {
	t.Helper()
	tags, err := e.store.ListTags(context.Background())
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}

// assertNoOrphanTags fails when any tag has zero associations.
func (e *testEnv) assertNoOrphanTags(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	tags, err := e.store.ListTags(ctx)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	for _, tag := range tags {
		count, err := e.store.CountTagAssociations(ctx, tag.ID)
		if err != nil {
			t.Fatalf("count associations: %v", err)
		}
		if count == 0 {
			t.Fatalf("tag %q (%s) has no associations", tag.Name, tag.ID)
		}
	}
}

func asAPIError(err error, out *apiError) bool {
	if err == nil || out == nil {
		return false
	}
	return errors.As(err, out)
}

func requireAPIError(t *testing.T, err error, status int, code string) apiError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d %s error, got nil", status, code)
	}
	var apiErr apiError
	if !asAPIError(err, &apiErr) {
		t.Fatalf("expected apiError, got %T: %v", err, err)
	}
	if apiErr.status != status || apiErr.code != code {
		t.Fatalf("expected %d %s, got %d %s (%v)", status, code, apiErr.status, apiErr.code, err)
	}
	return apiErr
}

// failingBlobStore wraps a BlobStore and fails selected operations.
type failingBlobStore struct {
	blobstore.BlobStore
	failPut    bool
	failDelete bool
}

func (f *failingBlobStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	if f.failPut {
		return 0, fmt.Errorf("disk full")
	}
	return f.BlobStore.Put(ctx, key, r)
}

func (f *failingBlobStore) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return fmt.Errorf("permission denied")
	}
	return f.BlobStore.Delete(ctx, key)
}

// uniqueViolationStore fails every CreateAssociation inside a transaction
// with createErr, as if a concurrent writer had inserted the row first.
type uniqueViolationStore struct {
	store.MetadataStore
	createErr error
}

func (s *uniqueViolationStore) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	return s.MetadataStore.WithTx(ctx, func(q store.Queries) error {
		return fn(&uniqueViolationQueries{Queries: q, createErr: s.createErr})
	})
}

type uniqueViolationQueries struct {
	store.Queries
	createErr error
}

func (q *uniqueViolationQueries) CreateAssociation(context.Context, string, string) error {
	return q.createErr
}
