package models

import "time"

// Image is an uploaded image. Its bytes live in the blob store under ID.
type Image struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// ImageMetadata is the detail view of one image.
type ImageMetadata struct {
	Filename string `json:"filename"`
	Tags     []Tag  `json:"tags"`
}
