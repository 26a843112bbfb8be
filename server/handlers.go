package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aqua777/go-legalrag/metadata"
	"github.com/aqua777/go-legalrag/schema"
)

// envelope is the uniform response shape: either data or an error message.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type uploadResponse struct {
	FileID       string `json:"file_id"`
	CaseCategory string `json:"case_category"`
	StorageURL   string `json:"storage_url,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Chunks       int    `json:"chunks"`
}

type retrieveRequest struct {
	Question string `json:"question"`
	Category string `json:"category"`
}

type contextResponse struct {
	DocumentID   string  `json:"document_id"`
	CaseCategory string  `json:"case_category"`
	StorageURL   string  `json:"storage_url,omitempty"`
	Summary      string  `json:"summary,omitempty"`
	Score        float64 `json:"score"`
	Snippet      string  `json:"snippet"`
}

type retrieveResponse struct {
	Answer      string            `json:"answer"`
	UsedContext []contextResponse `json:"used_context"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	caseCategory := strings.TrimSpace(r.FormValue("caseType"))
	if caseCategory == "" {
		s.writeError(w, http.StatusBadRequest, "missing caseType field")
		return
	}

	doc, err := s.pipeline.Ingest(r.Context(), file, header.Filename, caseCategory)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, envelope{Success: true, Data: uploadResponse{
		FileID:       doc.ID,
		CaseCategory: doc.CaseCategory,
		StorageURL:   doc.StorageURL,
		Summary:      doc.Summary,
		Chunks:       len(doc.ChunkIDs),
	}})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	answer, err := s.pipeline.Query(r.Context(), req.Question, req.Category)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: retrieveResponse{
		Answer:      answer.Text,
		UsedContext: s.buildUsedContext(r, answer.UsedContext),
	}})
}

// buildUsedContext collapses chunk-level context to one entry per document
// (best chunk first, so the kept snippet and score are the document's best
// match) and enriches it from the metadata store.
func (s *Server) buildUsedContext(r *http.Request, used []schema.RetrievalResult) []contextResponse {
	out := make([]contextResponse, 0, len(used))
	seen := make(map[string]bool, len(used))

	for _, result := range used {
		if seen[result.DocumentID] {
			continue
		}
		seen[result.DocumentID] = true

		entry := contextResponse{
			DocumentID:   result.DocumentID,
			CaseCategory: result.CaseCategory,
			Score:        result.Score,
			Snippet:      result.Snippet,
		}
		if store := s.pipeline.Metadata(); store != nil {
			record, err := store.Get(r.Context(), result.DocumentID)
			if err == nil {
				entry.StorageURL = record.StorageURL
				entry.Summary = record.Summary
			} else if !errors.Is(err, metadata.ErrNotFound) {
				s.logger.Warn("context enrichment failed",
					"document", result.DocumentID, "error", err)
			}
		}
		out = append(out, entry)
	}
	return out
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	store := s.pipeline.Metadata()
	if store == nil {
		s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: []schema.DocumentRecord{}})
		return
	}

	records, err := store.List(r.Context())
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	if records == nil {
		records = []schema.DocumentRecord{}
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: records})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.pipeline.Delete(r.Context(), id); err != nil {
		s.writePipelineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, envelope{Success: false, Error: message})
}

// writePipelineError maps classified errors to statuses. Internal detail is
// logged, not leaked: only input errors carry their message to the client.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := http.StatusText(status)
	if status == http.StatusBadRequest {
		message = err.Error()
	} else {
		s.logger.Error("request failed", "error", err)
	}
	s.writeError(w, status, message)
}
