package server

import (
	"encoding/json"
	"net/http"

	"github.com/teranos/redpen/annotation"
	"github.com/teranos/redpen/errors"
)

type createAnnotationRequest struct {
	AnnType     annotation.Type    `json:"annType"`
	Text        string             `json:"text"`
	TargetBlock *string            `json:"targetBlock"`
	Coords      *annotation.Coords `json:"coords"`
}

type updateAnnotationRequest struct {
	ID          *string            `json:"id"`
	AnnType     *annotation.Type   `json:"annType"`
	Text        *string            `json:"text"`
	Coords      *annotation.Coords `json:"coords"`
	ExpectedSha string             `json:"expectedSha"`

	// Immutable after creation; present only to reject it
	TargetBlock json.RawMessage `json:"targetBlock"`
}

type annotationResponse struct {
	ID            string `json:"id"`
	ServerPageSha string `json:"serverPageSha"`
}

// HandleGetPage returns a page's annotations and current hash. Unknown pages
// are empty, not 404.
func (s *Server) HandleGetPage(w http.ResponseWriter, r *http.Request) {
	page, _, err := s.deps.Annotations.GetPage(r.PathValue("pageId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleCreateAnnotation appends an annotation and returns its minted id.
func (s *Server) HandleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)

	var req createAnnotationRequest
	if !readJSON(w, r, &req) {
		return
	}

	id, sha, err := s.deps.Annotations.CreateAnnotation(r.PathValue("pageId"), annotation.NewAnnotation{
		AnnType:     req.AnnType,
		Text:        req.Text,
		TargetBlock: req.TargetBlock,
		Coords:      req.Coords,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, annotationResponse{ID: id, ServerPageSha: sha})
}

// HandleUpdateAnnotation patches an annotation under optimistic concurrency.
func (s *Server) HandleUpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)

	var req updateAnnotationRequest
	if !readJSON(w, r, &req) {
		return
	}

	pageID := r.PathValue("pageId")
	id := r.PathValue("id")

	if req.TargetBlock != nil {
		s.writeDomainError(w, r, errors.Validationf("targetBlock cannot be changed after creation"))
		return
	}
	if req.ID != nil && *req.ID != id {
		s.writeDomainError(w, r, errors.Validationf("id cannot be changed after creation"))
		return
	}

	patch := annotation.Patch{
		AnnType: req.AnnType,
		Text:    req.Text,
		Coords:  req.Coords,
	}
	if patch.Empty() {
		s.writeDomainError(w, r, errors.WithHint(
			errors.Validationf("update changes nothing"),
			"send at least one of annType, text, coords"))
		return
	}

	sha, err := s.deps.Annotations.UpdateAnnotation(pageID, id, req.ExpectedSha, patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, annotationResponse{ID: id, ServerPageSha: sha})
}
