package server

import (
	"context"

	"imagetag/internal/models"
	"imagetag/internal/store"
)

// SearchService finds images by tag intersection.
type SearchService struct {
	metadata store.MetadataStore
}

// NewSearchService constructs a SearchService.
func NewSearchService(metadata store.MetadataStore) *SearchService {
	return &SearchService{metadata: metadata}
}

// SearchByTags returns the images associated with every distinct id in
// tagIDs, in creation order. An empty request matches no images.
func (s *SearchService) SearchByTags(ctx context.Context, tagIDs []string) ([]models.Image, error) {
	ids, err := requireIDs(tagIDs, "tags_id")
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Image{}, nil
	}
	images, err := s.metadata.SearchImagesByTags(ctx, ids)
	if err != nil {
		return nil, storeErr(err)
	}
	return images, nil
}
