package main

import (
	"fmt"
	"os"
	"time"

	"imagetag/internal/format"
	"imagetag/internal/models"
)

type outputOptions struct {
	json bool
	yaml bool
}

// structured reports whether output should be machine readable.
func (o *outputOptions) structured() bool {
	return o != nil && (o.json || o.yaml)
}

func (o *outputOptions) formatter() format.Formatter {
	if o != nil && o.yaml {
		return format.YAMLFormatter{}
	}
	return format.JSONFormatter{}
}

func (o *outputOptions) write(payload any) error {
	return o.formatter().Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeImageList(images []models.Image) error {
	for _, image := range images {
		if err := writePlain("%s\n", formatImageLine(image)); err != nil {
			return err
		}
	}
	return nil
}

func writeImageMetadata(id string, meta models.ImageMetadata) error {
	if err := writePlain("id: %s\nfilename: %s\n", id, meta.Filename); err != nil {
		return err
	}
	if len(meta.Tags) == 0 {
		return writePlain("tags: none\n")
	}
	if err := writePlain("tags:\n"); err != nil {
		return err
	}
	for _, tag := range meta.Tags {
		if err := writePlain("  - %s (%s)\n", tag.Name, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

func writeTagList(tags []models.Tag) error {
	for _, tag := range tags {
		if err := writePlain("%s\t%s\n", tag.ID, tag.Name); err != nil {
			return err
		}
	}
	return nil
}

func formatImageLine(image models.Image) string {
	return fmt.Sprintf("%s  %s  %s  %s", image.ID, formatTime(image.CreatedAt), image.MimeType, image.Filename)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
