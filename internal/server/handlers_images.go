package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"imagetag/internal/api"
	"imagetag/internal/models"
)

const defaultListLimit = 20

func (s *Server) handleCreateImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadMaxBytes)
	if err := r.ParseMultipartForm(s.multipartMaxMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(api.UploadFieldName)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("%s file is required", api.UploadFieldName), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	image, err := s.images.Create(r.Context(), CreateImageInput{
		Filename:          header.Filename,
		DeclaredMediaType: header.Header.Get("Content-Type"),
	}, file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, image)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	offset, err := queryIntDefault(r, "offset", 0)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	limit, err := queryIntDefault(r, "limit", defaultListLimit)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	images, err := s.images.List(r.Context(), offset, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if images == nil {
		images = []models.Image{}
	}
	s.writeJSON(w, http.StatusOK, images)
}

func (s *Server) handleSearchImages(w http.ResponseWriter, r *http.Request) {
	var req api.SearchRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	images, err := s.search.SearchByTags(r.Context(), req.TagsID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if images == nil {
		images = []models.Image{}
	}
	s.writeJSON(w, http.StatusOK, images)
}

func (s *Server) handleGetImageMetadata(w http.ResponseWriter, r *http.Request) {
	imageID, ok := s.pathIDOrBadRequest(w, r, "image_id")
	if !ok {
		return
	}

	meta, err := s.images.GetMetadata(r.Context(), imageID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if meta.Tags == nil {
		meta.Tags = []models.Tag{}
	}
	s.writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := s.pathIDOrBadRequest(w, r, "image_id")
	if !ok {
		return
	}

	if err := s.images.Delete(r.Context(), imageID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleViewImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := s.pathIDOrBadRequest(w, r, "image_id")
	if !ok {
		return
	}

	content, err := s.images.OpenContent(r.Context(), imageID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Reader.Close()

	w.Header().Set("Content-Type", content.MediaType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content.Reader); err != nil {
		s.log().Warn("stream image content", "image_id", imageID, "error", err)
	}
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	apply, err := queryBool(r, "apply")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := s.images.Reconcile(r.Context(), apply)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ReconcileResponse(result))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.StatusResponse{Status: "ok"})
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	return badRequestCode(err, ErrCodeInvalidArgument)
}
