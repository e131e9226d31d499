package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/session"
)

const (
	defaultLookupLimit = 10
	maxLookupLimit     = 100
	// multipartOverhead allows for form boundaries and headers around the file.
	multipartOverhead = 1 << 20
)

type sessionResponse struct {
	session.Info
	Message     string   `json:"message,omitempty"`
	Accept      []string `json:"accept,omitempty"`
	MaxUploadMB int      `json:"max_upload_mb,omitempty"`
}

type uploadResponse struct {
	State    session.State   `json:"state"`
	Document *indexer.Result `json:"document"`
	Message  string          `json:"message"`
}

type messageRequest struct {
	Content string `json:"content"`
	TopK    int    `json:"top_k,omitempty"`
}

type messageResponse struct {
	Author    string             `json:"author"`
	Question  string             `json:"question"`
	Text      string             `json:"text"`
	Rendered  string             `json:"rendered"`
	Citations []*models.Citation `json:"citations"`
	NoContent bool               `json:"no_content,omitempty"`
}

// errorResponse carries a stable code in Error and the text to show the user in Message.
type errorResponse struct {
	Error   string        `json:"error"`
	Message string        `json:"message,omitempty"`
	State   session.State `json:"state,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.logger.Error("create session failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, sessionResponse{
		Info:        sess.Info(),
		Message:     session.UploadPrompt(sess.MaxUploadMB()),
		Accept:      extract.SupportedExtensions(),
		MaxUploadMB: sess.MaxUploadMB(),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list := s.sessions.List()
	infos := make([]session.Info, len(list))
	for i, sess := range list {
		infos[i] = sess.Info()
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": infos})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse{Info: sess.Info()})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Close(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("close session failed", zap.String("session", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "closed"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	maxBytes := int64(sess.MaxUploadMB()) << 20
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondSessionError(w, sess, models.ErrFileTooLarge)
			return
		}
		s.respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "missing_file",
			Message: session.UploadPrompt(sess.MaxUploadMB()),
			State:   sess.State(),
		})
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	name := filepath.Base(header.Filename)
	s.logger.Debug("upload request", zap.String("session", sess.ID()), zap.String("name", name), zap.Int("bytes", len(content)))
	res, err := sess.Upload(r.Context(), session.Upload{Name: name, Content: content})
	if err != nil {
		s.respondSessionError(w, sess, err)
		return
	}
	s.respondJSON(w, http.StatusOK, uploadResponse{
		State:    sess.State(),
		Document: res,
		Message:  "Processing " + res.Name + " is done. You can now ask questions!",
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ans, err := sess.AskQuestion(r.Context(), models.Question{Content: req.Content, TopK: req.TopK})
	if err != nil {
		s.respondSessionError(w, sess, err)
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{
		Author:    "Answer",
		Question:  ans.Question,
		Text:      ans.Text,
		Rendered:  ans.Render(),
		Citations: ans.Citations,
		NoContent: ans.NoContent,
	})
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit := defaultLookupLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLookupLimit)
	}
	fuzzy, _ := strconv.ParseBool(r.URL.Query().Get("fuzzy"))

	hits, err := sess.Lookup(r.Context(), q, limit, fuzzy)
	if err != nil {
		s.respondSessionError(w, sess, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": q, "hits": hits, "total": len(hits)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts := map[session.State]int{}
	for _, sess := range s.sessions.List() {
		counts[sess.State()]++
	}
	cfg := s.config
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":       s.sessions.Len(),
		"sessions_state": counts,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"config": map[string]interface{}{
			"embedding_provider":   cfg.Embedding.Provider,
			"embedding_model":      cfg.Embedding.Model,
			"embedding_dimensions": cfg.Embedding.Dimensions,
			"generation_model":     cfg.Generation.Model,
			"chunk_size":           cfg.Ingest.ChunkSize,
			"max_upload_mb":        cfg.Ingest.MaxUploadMB,
			"top_k":                cfg.Retrieval.TopK,
			"prompt_language":      cfg.Prompt.Language,
			"inbox_dir":            cfg.Ingest.InboxDir,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// statusFor maps session errors to an HTTP status and a stable error code.
// The code stands in for the wrapped error text, which may carry upstream API details.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrEmptyQuestion):
		return http.StatusBadRequest, "empty_question"
	case errors.Is(err, models.ErrNoFileProvided):
		return http.StatusConflict, "no_file"
	case errors.Is(err, models.ErrDocumentLoaded):
		return http.StatusConflict, "document_loaded"
	case errors.Is(err, models.ErrSessionClosed):
		return http.StatusGone, "session_closed"
	case errors.Is(err, models.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, models.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, models.ErrLoad):
		return http.StatusUnprocessableEntity, "load_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "canceled"
	case errors.Is(err, models.ErrEmbeddingService):
		return http.StatusBadGateway, "embedding_service"
	case errors.Is(err, models.ErrGeneration):
		return http.StatusBadGateway, "generation_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) respondSessionError(w http.ResponseWriter, sess *session.Session, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		s.logger.Error("session request failed", zap.String("session", sess.ID()), zap.Error(err))
	}
	s.respondJSON(w, status, errorResponse{
		Error:   code,
		Message: sess.Explain(err),
		State:   sess.State(),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
