package api

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// StatusResponse is returned by the root health check.
type StatusResponse struct {
	Status string `json:"status"`
}

// SearchRequest selects images carrying every listed tag id.
type SearchRequest struct {
	TagsID []string `json:"tags_id"`
}

// AddTagRequest attaches a tag by name, creating the tag if needed.
type AddTagRequest struct {
	Name string `json:"name"`
}

// ReplaceTagRequest swaps the tag with ID for the tag named Name.
type ReplaceTagRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReconcileResponse reports blob store and metadata drift.
type ReconcileResponse struct {
	OrphanBlobs   []string `json:"orphan_blobs"`
	MissingBlobs  []string `json:"missing_blobs"`
	DeletedBlobs  int      `json:"deleted_blobs"`
	FailedDeletes int      `json:"failed_deletes"`
	DryRun        bool     `json:"dry_run"`
}
