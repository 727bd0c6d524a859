package models

// Tag is a free-text label shared by every image it is associated with.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
