package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /{$}", s.handleRoot)

	// Images collection.
	mux.HandleFunc("POST /api/v1/images/create", s.handleCreateImage)
	mux.HandleFunc("GET /api/v1/images/list", s.handleListImages)
	mux.HandleFunc("POST /api/v1/images/search", s.handleSearchImages)

	// Single image.
	mux.HandleFunc("GET /api/v1/images/{image_id}", s.handleGetImageMetadata)
	mux.HandleFunc("DELETE /api/v1/images/{image_id}", s.handleDeleteImage)

	// Image tags.
	mux.HandleFunc("POST /api/v1/images/{image_id}/tags", s.handleAddTag)
	mux.HandleFunc("PUT /api/v1/images/{image_id}/tags", s.handleReplaceTag)
	mux.HandleFunc("DELETE /api/v1/images/{image_id}/tags/{tag_id}", s.handleDeleteTag)

	// Tags.
	mux.HandleFunc("GET /api/v1/tags/list", s.handleListTags)

	// Raw content.
	mux.HandleFunc("GET /view/images/{image_id}", s.handleViewImage)

	// Admin.
	mux.HandleFunc("POST /api/v1/admin/reconcile", s.handleReconcile)

	return mux
}
