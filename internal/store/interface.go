package store

import (
	"context"

	"imagetag/internal/models"
)

// Queries is the metadata surface shared by the store and its transactions.
// Lookups return (nil, nil) when the row does not exist.
type Queries interface {
	CreateImage(ctx context.Context, image *models.Image) error
	GetImage(ctx context.Context, id string) (*models.Image, error)
	DeleteImage(ctx context.Context, id string) (bool, error)
	ListImages(ctx context.Context, offset, limit int) ([]models.Image, error)
	ListImageIDs(ctx context.Context) ([]string, error)

	CreateTag(ctx context.Context, tag *models.Tag) error
	GetTag(ctx context.Context, id string) (*models.Tag, error)
	GetTagByName(ctx context.Context, name string) (*models.Tag, error)
	DeleteTag(ctx context.Context, id string) (bool, error)
	ListTags(ctx context.Context) ([]models.Tag, error)

	ListImageTags(ctx context.Context, imageID string) ([]models.Tag, error)
	AssociationExists(ctx context.Context, imageID, tagID string) (bool, error)
	CreateAssociation(ctx context.Context, imageID, tagID string) error
	DeleteAssociation(ctx context.Context, imageID, tagID string) (bool, error)
	CountTagAssociations(ctx context.Context, tagID string) (int, error)

	SearchImagesByTags(ctx context.Context, tagIDs []string) ([]models.Image, error)
}

// MetadataStore abstracts the relational backend used by the services.
type MetadataStore interface {
	Queries

	// WithTx runs fn inside one transaction. fn must only use the Queries it
	// is given; the transaction commits when fn returns nil.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
	Close() error
}

var _ MetadataStore = (*Store)(nil)
