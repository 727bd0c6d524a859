package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"imagetag/internal/models"
)

const imageColumns = "id, filename, mime_type, created_at"

// CreateImage inserts one image row. CreatedAt defaults to now.
func (q *queries) CreateImage(ctx context.Context, image *models.Image) error {
	if image == nil {
		return fmt.Errorf("image is required")
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}
	_, err := q.exec(ctx,
		"INSERT INTO images (id, filename, mime_type, created_at) VALUES (?, ?, ?, ?)",
		image.ID, image.Filename, image.MimeType, formatTime(image.CreatedAt),
	)
	return err
}

// GetImage returns an image by id.
func (q *queries) GetImage(ctx context.Context, id string) (*models.Image, error) {
	row := q.queryRow(ctx, "SELECT "+imageColumns+" FROM images WHERE id = ?", id)
	return scanImage(row)
}

// DeleteImage deletes one image row and reports whether it existed.
func (q *queries) DeleteImage(ctx context.Context, id string) (bool, error) {
	res, err := q.exec(ctx, "DELETE FROM images WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// ListImages returns images in creation order. A negative limit means no limit.
func (q *queries) ListImages(ctx context.Context, offset, limit int) ([]models.Image, error) {
	if offset < 0 {
		offset = 0
	}
	query := "SELECT " + imageColumns + " FROM images ORDER BY seq ASC"
	args := []any{}
	switch {
	case limit >= 0:
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	case offset > 0:
		if q.dialect == DialectPostgres {
			query += " OFFSET ?"
		} else {
			query += " LIMIT -1 OFFSET ?"
		}
		args = append(args, offset)
	}

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanImages(rows)
}

// ListImageIDs returns every image id.
func (q *queries) ListImageIDs(ctx context.Context) ([]string, error) {
	rows, err := q.query(ctx, "SELECT id FROM images ORDER BY seq ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SearchImagesByTags returns images associated with every distinct id in
// tagIDs, in creation order. An empty tagIDs matches nothing.
func (q *queries) SearchImagesByTags(ctx context.Context, tagIDs []string) ([]models.Image, error) {
	distinct := dedupeStrings(tagIDs)
	if len(distinct) == 0 {
		return []models.Image{}, nil
	}

	args := make([]any, 0, len(distinct)+1)
	for _, id := range distinct {
		args = append(args, id)
	}
	args = append(args, len(distinct))

	query := fmt.Sprintf(`
		SELECT i.id, i.filename, i.mime_type, i.created_at
		FROM images i
		JOIN image_tags it ON it.image_id = i.id
		WHERE it.tag_id IN (%s)
		GROUP BY i.seq, i.id, i.filename, i.mime_type, i.created_at
		HAVING COUNT(DISTINCT it.tag_id) = ?
		ORDER BY i.seq ASC
	`, placeholders(len(distinct)))

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanImages(rows)
}

func scanImages(rows *sql.Rows) ([]models.Image, error) {
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		if image == nil {
			continue
		}
		images = append(images, *image)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return images, nil
}

func scanImage(scanner interface {
	Scan(dest ...any) error
}) (*models.Image, error) {
	var image models.Image
	var createdAt string
	if err := scanner.Scan(&image.ID, &image.Filename, &image.MimeType, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	parsed, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	image.CreatedAt = parsed
	return &image, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimRight(strings.Repeat("?,", count), ",")
}

func dedupeStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
