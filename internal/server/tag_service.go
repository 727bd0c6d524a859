package server

import (
	"context"
	"fmt"

	"imagetag/internal/models"
	"imagetag/internal/store"
)

// TagService manages image-tag associations.
type TagService struct {
	metadata  store.MetadataStore
	lifecycle *TagLifecycle
}

// NewTagService constructs a TagService.
func NewTagService(metadata store.MetadataStore, lifecycle *TagLifecycle) *TagService {
	return &TagService{metadata: metadata, lifecycle: lifecycle}
}

// AddTag associates the tag called name with an image, creating the tag if
// it does not exist yet.
func (s *TagService) AddTag(ctx context.Context, imageID, name string) (models.Tag, error) {
	var result models.Tag
	imageID, err := requireID(imageID, "image_id")
	if err != nil {
		return result, err
	}
	if err := validateTagName(name); err != nil {
		return result, err
	}

	err = s.metadata.WithTx(ctx, func(q store.Queries) error {
		image, err := q.GetImage(ctx, imageID)
		if err != nil {
			return err
		}
		if image == nil {
			return notFoundCode(fmt.Errorf("image not found"), ErrCodeImageNotFound)
		}

		tag, err := getOrCreateTag(ctx, q, name)
		if err != nil {
			return err
		}
		exists, err := q.AssociationExists(ctx, imageID, tag.ID)
		if err != nil {
			return err
		}
		if exists {
			return conflictCode(fmt.Errorf("image already has tag %q", name), ErrCodeAssociationExists)
		}
		if err := q.CreateAssociation(ctx, imageID, tag.ID); err != nil {
			return err
		}
		result = *tag
		return nil
	})
	if err != nil {
		return models.Tag{}, storeErr(err)
	}
	return result, nil
}

// ReplaceTag swaps oldTagID on an image for the tag called newName. The old
// tag is collected when this was its last association.
func (s *TagService) ReplaceTag(ctx context.Context, imageID, oldTagID, newName string) (models.Tag, error) {
	var result models.Tag
	imageID, err := requireID(imageID, "image_id")
	if err != nil {
		return result, err
	}
	oldTagID, err = requireID(oldTagID, "id")
	if err != nil {
		return result, err
	}
	if err := validateTagName(newName); err != nil {
		return result, err
	}

	err = s.metadata.WithTx(ctx, func(q store.Queries) error {
		exists, err := q.AssociationExists(ctx, imageID, oldTagID)
		if err != nil {
			return err
		}
		if !exists {
			return notFoundCode(fmt.Errorf("tag is not associated with image"), ErrCodeAssociationNotFound)
		}

		tag, err := getOrCreateTag(ctx, q, newName)
		if err != nil {
			return err
		}
		exists, err = q.AssociationExists(ctx, imageID, tag.ID)
		if err != nil {
			return err
		}
		if exists {
			return conflictCode(fmt.Errorf("image already has tag %q", newName), ErrCodeAssociationExists)
		}

		if _, err := q.DeleteAssociation(ctx, imageID, oldTagID); err != nil {
			return err
		}
		if err := q.CreateAssociation(ctx, imageID, tag.ID); err != nil {
			return err
		}
		if _, err := s.lifecycle.CollectIfOrphaned(ctx, q, oldTagID); err != nil {
			return err
		}
		result = *tag
		return nil
	})
	if err != nil {
		return models.Tag{}, storeErr(err)
	}
	return result, nil
}

// DeleteTag removes one association and collects the tag if it is now unused.
func (s *TagService) DeleteTag(ctx context.Context, imageID, tagID string) error {
	imageID, err := requireID(imageID, "image_id")
	if err != nil {
		return err
	}
	tagID, err = requireID(tagID, "tag_id")
	if err != nil {
		return err
	}

	err = s.metadata.WithTx(ctx, func(q store.Queries) error {
		removed, err := q.DeleteAssociation(ctx, imageID, tagID)
		if err != nil {
			return err
		}
		if !removed {
			return notFoundCode(fmt.Errorf("tag is not associated with image"), ErrCodeAssociationNotFound)
		}
		_, err = s.lifecycle.CollectIfOrphaned(ctx, q, tagID)
		return err
	})
	return storeErr(err)
}

// ListAll returns every tag ordered by name.
func (s *TagService) ListAll(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.metadata.ListTags(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return tags, nil
}

func getOrCreateTag(ctx context.Context, q store.Queries, name string) (*models.Tag, error) {
	tag, err := q.GetTagByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if tag != nil {
		return tag, nil
	}
	tag = &models.Tag{ID: store.GenerateID(), Name: name}
	if err := q.CreateTag(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}
