package server

import (
	"net/http"

	"imagetag/internal/api"
	"imagetag/internal/models"
)

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	imageID, ok := s.pathIDOrBadRequest(w, r, "image_id")
	if !ok {
		return
	}
	var req api.AddTagRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	tag, err := s.tags.AddTag(r.Context(), imageID, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tag)
}

func (s *Server) handleReplaceTag(w http.ResponseWriter, r *http.Request) {
	imageID, ok := s.pathIDOrBadRequest(w, r, "image_id")
	if !ok {
		return
	}
	var req api.ReplaceTagRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	tag, err := s.tags.ReplaceTag(r.Context(), imageID, req.ID, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tag)
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	imageID, ok := s.pathIDOrBadRequest(w, r, "image_id")
	if !ok {
		return
	}
	tagID, ok := s.pathIDOrBadRequest(w, r, "tag_id")
	if !ok {
		return
	}

	if err := s.tags.DeleteTag(r.Context(), imageID, tagID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.ListAll(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	s.writeJSON(w, http.StatusOK, tags)
}
