package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

const maxUploadBytes = 100 << 20 // 100 MiB

// handleUploadDocument accepts a multipart file upload and starts ingestion.
// The response is the PROCESSING document record; processing continues in the
// background and an aborted client connection does not stop it.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	kind, ok := ingest.KindForPath(header.Filename)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "unsupported file type")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	s.logger.Debug("upload request",
		zap.String("filename", header.Filename), zap.String("kind", string(kind)))

	src := extract.Source{Kind: kind, Data: data, URL: header.Filename}
	s.startIngestion(w, r, src)
}

type ingestURLRequest struct {
	URL        string            `json:"url"`
	SourceType models.SourceType `json:"source_type"`
}

// handleIngestURL ingests a web page or a hosted-video transcript by URL.
func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		s.respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.SourceType == "" {
		req.SourceType = models.SourceWeb
	}
	if req.SourceType != models.SourceWeb && req.SourceType != models.SourceYouTube {
		s.respondError(w, http.StatusBadRequest, "source_type must be web or youtube")
		return
	}
	s.startIngestion(w, r, extract.Source{Kind: req.SourceType, URL: req.URL})
}

// startIngestion creates the document record, responds 202, and processes in
// a detached context.
func (s *Server) startIngestion(w http.ResponseWriter, r *http.Request, src extract.Source) {
	doc, err := s.pipeline.Begin(r.Context(), src)
	if err != nil {
		s.logger.Error("failed to create document", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	go func() {
		if err := s.pipeline.Process(context.Background(), doc, src); err != nil {
			s.logger.Error("ingestion failed",
				zap.String("document_id", doc.ID), zap.Error(err))
		}
	}()
	s.respondJSON(w, http.StatusAccepted, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"id":     doc.ID,
		"status": string(doc.Status),
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.pipeline.Delete(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type askRequest struct {
	Question   string           `json:"question"`
	DocumentID string           `json:"document_id"`
	History    []models.Message `json:"history,omitempty"`
}

type askResponse struct {
	Answer  string                   `json:"answer"`
	Sources []models.RetrievalResult `json:"sources"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("ask request",
		zap.String("document_id", req.DocumentID), zap.Int("history", len(req.History)))

	answer, sources, err := s.engine.Answer(r.Context(), req.Question, req.DocumentID, req.History)
	if err != nil {
		s.logger.Error("answer failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sources == nil {
		sources = []models.RetrievalResult{}
	}
	s.respondJSON(w, http.StatusOK, askResponse{Answer: answer, Sources: sources})
}

type reviewRequest struct {
	Note       string `json:"note"`
	DocumentID string `json:"document_id"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Note == "" {
		s.respondError(w, http.StatusBadRequest, "note is required")
		return
	}

	retrieved, err := s.engine.RetrieveContext(r.Context(), req.Note, req.DocumentID, 0)
	if err != nil {
		s.logger.Error("review retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunks := make([]string, 0, len(retrieved))
	for _, res := range retrieved {
		chunks = append(chunks, res.Text)
	}

	review, err := s.engine.ReviewNote(r.Context(), req.Note, chunks)
	if err != nil {
		s.logger.Error("review failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, review)
}

type recommendRequest struct {
	Notes      []string `json:"notes"`
	DocumentID string   `json:"document_id"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" {
		s.respondError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	stored, err := s.storage.GetChunksByDocumentID(r.Context(), req.DocumentID)
	if err != nil {
		s.logger.Error("recommend chunk lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunks := make([]string, 0, len(stored))
	for _, c := range stored {
		chunks = append(chunks, c.Content)
	}

	rec, err := s.engine.Recommend(r.Context(), req.Notes, chunks)
	if err != nil {
		s.logger.Error("recommend failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docCount,
		"chunks":    chunkCount,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
