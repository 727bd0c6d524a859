package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"imagetag/internal/blobstore"
	"imagetag/internal/models"
	"imagetag/internal/store"
)

// ImageService orchestrates image uploads, reads, and deletes across the
// metadata store and the blob store.
type ImageService struct {
	metadata  store.MetadataStore
	blobs     blobstore.BlobStore
	lifecycle *TagLifecycle
	policy    MediaPolicy
	logger    *slog.Logger
}

// CreateImageInput describes one upload.
type CreateImageInput struct {
	Filename          string
	DeclaredMediaType string
}

// ImageContent describes a raw image stream.
type ImageContent struct {
	Reader    io.ReadCloser
	MediaType string
	Filename  string
}

// ReconcileResult reports drift between blobs and image rows.
type ReconcileResult struct {
	OrphanBlobs   []string `json:"orphan_blobs"`
	MissingBlobs  []string `json:"missing_blobs"`
	DeletedBlobs  int      `json:"deleted_blobs"`
	FailedDeletes int      `json:"failed_deletes"`
	DryRun        bool     `json:"dry_run"`
}

// NewImageService constructs an ImageService.
func NewImageService(metadata store.MetadataStore, blobs blobstore.BlobStore, lifecycle *TagLifecycle, policy MediaPolicy, logger *slog.Logger) *ImageService {
	if logger == nil {
		logger = slog.Default()
	}
	if lifecycle == nil {
		lifecycle = NewTagLifecycle(logger)
	}
	return &ImageService{metadata: metadata, blobs: blobs, lifecycle: lifecycle, policy: policy, logger: logger}
}

// Create validates the media type, inserts the image row, then writes the
// bytes under the new id. A failed blob write removes the row again.
func (s *ImageService) Create(ctx context.Context, in CreateImageInput, content io.Reader) (models.Image, error) {
	var zero models.Image
	if content == nil {
		return zero, badRequestCode(fmt.Errorf("image content is required"), ErrCodeMissingRequired)
	}

	buffered := bufio.NewReaderSize(content, sniffLen)
	head, err := buffered.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return zero, badRequest(fmt.Errorf("read upload: %w", err))
	}
	// A zero-byte upload is stored as is; there is nothing to sniff.
	sniffed := ""
	if len(head) > 0 {
		sniffed = detectMediaType(head)
	}

	mediaType, source, err := s.policy.Resolve(in.DeclaredMediaType, sniffed)
	if err != nil {
		return zero, err
	}

	id := store.GenerateID()
	filename := baseFilename(in.Filename)
	if filename == "" {
		filename = id
	}
	image := &models.Image{
		ID:        id,
		Filename:  filename,
		MimeType:  mediaType,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.metadata.CreateImage(ctx, image); err != nil {
		return zero, storeErr(err)
	}

	size, err := s.blobs.Put(ctx, id, buffered)
	if err != nil {
		if _, derr := s.metadata.DeleteImage(context.WithoutCancel(ctx), id); derr != nil {
			s.logger.Error("remove image row after failed blob write", "image_id", id, "error", derr)
		}
		return zero, blobFailure(fmt.Errorf("store image content: %w", err))
	}

	s.logger.Debug("image created", "image_id", id, "mime_type", mediaType, "media_type_source", source, "size_bytes", size)
	return *image, nil
}

// Delete removes an image, its associations, and any tag left without
// associations, all in one transaction. The blob is removed after commit.
func (s *ImageService) Delete(ctx context.Context, id string) error {
	id, err := requireID(id, "image_id")
	if err != nil {
		return err
	}

	err = s.metadata.WithTx(ctx, func(q store.Queries) error {
		image, err := q.GetImage(ctx, id)
		if err != nil {
			return err
		}
		if image == nil {
			return notFoundCode(fmt.Errorf("image not found"), ErrCodeImageNotFound)
		}

		tags, err := q.ListImageTags(ctx, id)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			if _, err := q.DeleteAssociation(ctx, id, tag.ID); err != nil {
				return err
			}
			if _, err := s.lifecycle.CollectIfOrphaned(ctx, q, tag.ID); err != nil {
				return err
			}
		}

		_, err = q.DeleteImage(ctx, id)
		return err
	})
	if err != nil {
		return storeErr(err)
	}

	if err := s.blobs.Delete(ctx, id); err != nil {
		s.logger.Warn("image blob left behind; run reconcile to remove it", "image_id", id, "error", err)
	}
	return nil
}

// OpenContent opens the raw bytes of an image. The caller closes Reader.
func (s *ImageService) OpenContent(ctx context.Context, id string) (*ImageContent, error) {
	id, err := requireID(id, "image_id")
	if err != nil {
		return nil, err
	}

	image, err := s.metadata.GetImage(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if image == nil {
		return nil, notFoundCode(fmt.Errorf("image not found"), ErrCodeImageNotFound)
	}

	rc, err := s.blobs.Open(ctx, id)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return nil, notFoundCode(fmt.Errorf("image content not found"), ErrCodeContentNotFound)
		}
		return nil, blobFailure(err)
	}

	mediaType := strings.TrimSpace(image.MimeType)
	if mediaType == "" {
		mediaType = models.FallbackMediaType
	}
	return &ImageContent{Reader: rc, MediaType: mediaType, Filename: image.Filename}, nil
}

// GetMetadata returns an image's filename and its tags ordered by name.
func (s *ImageService) GetMetadata(ctx context.Context, id string) (models.ImageMetadata, error) {
	var zero models.ImageMetadata
	id, err := requireID(id, "image_id")
	if err != nil {
		return zero, err
	}

	image, err := s.metadata.GetImage(ctx, id)
	if err != nil {
		return zero, storeErr(err)
	}
	if image == nil {
		return zero, notFoundCode(fmt.Errorf("image not found"), ErrCodeImageNotFound)
	}
	tags, err := s.metadata.ListImageTags(ctx, id)
	if err != nil {
		return zero, storeErr(err)
	}
	return models.ImageMetadata{Filename: image.Filename, Tags: tags}, nil
}

// List returns images in creation order.
func (s *ImageService) List(ctx context.Context, offset, limit int) ([]models.Image, error) {
	if offset < 0 || limit < 0 {
		return nil, badRequestCode(fmt.Errorf("offset and limit must be >= 0"), ErrCodeInvalidQuery)
	}
	images, err := s.metadata.ListImages(ctx, offset, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return images, nil
}

// Reconcile compares blob keys with image rows. Blobs without a row are
// deleted when apply is set; rows without a blob are only reported.
func (s *ImageService) Reconcile(ctx context.Context, apply bool) (ReconcileResult, error) {
	result := ReconcileResult{OrphanBlobs: []string{}, MissingBlobs: []string{}, DryRun: !apply}

	// Blobs are listed before rows: an upload inserts its row first, so a
	// blob seen here always has its row visible to the next query.
	keys, err := s.blobs.List(ctx)
	if err != nil {
		return result, blobFailure(err)
	}
	ids, err := s.metadata.ListImageIDs(ctx)
	if err != nil {
		return result, storeErr(err)
	}

	rows := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		rows[id] = struct{}{}
	}
	blobs := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		blobs[key] = struct{}{}
		if _, ok := rows[key]; !ok {
			result.OrphanBlobs = append(result.OrphanBlobs, key)
		}
	}
	for _, id := range ids {
		if _, ok := blobs[id]; !ok {
			result.MissingBlobs = append(result.MissingBlobs, id)
		}
	}

	if !apply {
		return result, nil
	}
	for _, key := range result.OrphanBlobs {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("delete orphan blob", "key", key, "error", err)
			result.FailedDeletes++
			continue
		}
		result.DeletedBlobs++
	}
	s.logger.Info("reconcile complete", "orphan_blobs", len(result.OrphanBlobs), "missing_blobs", len(result.MissingBlobs), "deleted_blobs", result.DeletedBlobs)
	return result, nil
}
