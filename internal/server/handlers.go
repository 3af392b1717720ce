package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/storage"
)

type answerRequest struct {
	Query string `json:"query"`
}

type retrieveRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type retrieveResponse struct {
	Retrieved models.RetrievalResult `json:"retrieved"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("answer request",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("query_len", len(req.Query)))
	ans, err := s.pipeline.Answer(r.Context(), req.Query)
	if err != nil {
		s.respondPipelineError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.pipeline.Retrieve(r.Context(), req.Query, req.K)
	if err != nil {
		s.respondPipelineError(w, r, err)
		return
	}
	if result == nil {
		result = models.RetrievalResult{}
	}
	s.respondJSON(w, http.StatusOK, retrieveResponse{Retrieved: result})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	idx := s.pipeline.Index()
	resp := map[string]interface{}{
		"ready":      idx != nil,
		"records":    idx.Size(),
		"dimensions": idx.Dimensions(),
		"metric":     idx.Metric(),
		"build_id":   idx.BuildID(),
		"top_k":      s.pipeline.TopK(),
	}
	if idx != nil {
		resp["created_at"] = idx.CreatedAt().Format(time.RFC3339)
	}
	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"index_path":          s.config.Index.Path,
			"embedding_provider":  s.config.Embedding.Provider,
			"generation_provider": s.config.Generation.Provider,
			"generation_model":    s.config.Generation.Model,
			"chunk_size":          s.config.Chunking.ChunkSize,
			"chunk_overlap":       s.config.Chunking.Overlap(),
			"max_context_chars":   s.config.Generation.MaxContextChars,
		}
		if diskBytes, err := storage.DiskUsageBytes(s.config.Index.Path); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrIndexNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
