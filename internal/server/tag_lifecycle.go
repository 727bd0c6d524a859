package server

import (
	"context"
	"log/slog"

	"imagetag/internal/store"
)

// TagLifecycle removes tags that no longer have any image associations.
type TagLifecycle struct {
	logger *slog.Logger
}

// NewTagLifecycle constructs a TagLifecycle.
func NewTagLifecycle(logger *slog.Logger) *TagLifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &TagLifecycle{logger: logger}
}

// CollectIfOrphaned deletes tagID when no association references it.
// q must be the transaction that removed the association so the orphan is
// never visible to readers.
func (l *TagLifecycle) CollectIfOrphaned(ctx context.Context, q store.Queries, tagID string) (bool, error) {
	count, err := q.CountTagAssociations(ctx, tagID)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	deleted, err := q.DeleteTag(ctx, tagID)
	if err != nil {
		return false, err
	}
	if deleted {
		l.logger.Debug("collected orphan tag", "tag_id", tagID)
	}
	return deleted, nil
}
