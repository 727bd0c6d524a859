package store

import (
	"context"
	"database/sql"
	"fmt"

	"imagetag/internal/models"
)

// CreateTag inserts one tag row.
func (q *queries) CreateTag(ctx context.Context, tag *models.Tag) error {
	if tag == nil {
		return fmt.Errorf("tag is required")
	}
	_, err := q.exec(ctx, "INSERT INTO tags (id, name) VALUES (?, ?)", tag.ID, tag.Name)
	return err
}

// GetTag returns a tag by id.
func (q *queries) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	return scanTag(q.queryRow(ctx, "SELECT id, name FROM tags WHERE id = ?", id))
}

// GetTagByName returns the tag with exactly this name.
func (q *queries) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	return scanTag(q.queryRow(ctx, "SELECT id, name FROM tags WHERE name = ?", name))
}

// DeleteTag deletes one tag row and reports whether it existed.
func (q *queries) DeleteTag(ctx context.Context, id string) (bool, error) {
	res, err := q.exec(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// ListTags returns every tag ordered by name.
func (q *queries) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := q.query(ctx, "SELECT id, name FROM tags ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	return scanTags(rows)
}

// ListImageTags returns the tags associated with one image, ordered by name.
func (q *queries) ListImageTags(ctx context.Context, imageID string) ([]models.Tag, error) {
	rows, err := q.query(ctx, `
		SELECT t.id, t.name
		FROM image_tags it
		JOIN tags t ON t.id = it.tag_id
		WHERE it.image_id = ?
		ORDER BY t.name ASC
	`, imageID)
	if err != nil {
		return nil, err
	}
	return scanTags(rows)
}

// AssociationExists checks the (image, tag) primary key.
func (q *queries) AssociationExists(ctx context.Context, imageID, tagID string) (bool, error) {
	var exists int
	err := q.queryRow(ctx, "SELECT 1 FROM image_tags WHERE image_id = ? AND tag_id = ?", imageID, tagID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateAssociation links an image to a tag. A duplicate pair fails with a
// unique violation (see IsUniqueViolation).
func (q *queries) CreateAssociation(ctx context.Context, imageID, tagID string) error {
	_, err := q.exec(ctx, "INSERT INTO image_tags (image_id, tag_id) VALUES (?, ?)", imageID, tagID)
	return err
}

// DeleteAssociation unlinks an image from a tag and reports whether the link existed.
func (q *queries) DeleteAssociation(ctx context.Context, imageID, tagID string) (bool, error) {
	res, err := q.exec(ctx, "DELETE FROM image_tags WHERE image_id = ? AND tag_id = ?", imageID, tagID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// CountTagAssociations returns how many images reference a tag.
func (q *queries) CountTagAssociations(ctx context.Context, tagID string) (int, error) {
	var count int
	err := q.queryRow(ctx, "SELECT COUNT(*) FROM image_tags WHERE tag_id = ?", tagID).Scan(&count)
	return count, err
}

func scanTag(row *sql.Row) (*models.Tag, error) {
	var tag models.Tag
	if err := row.Scan(&tag.ID, &tag.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

func scanTags(rows *sql.Rows) ([]models.Tag, error) {
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
