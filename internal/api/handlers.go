package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/anonimizador/internal/blob"
	"github.com/raaihank/anonimizador/internal/export"
	"github.com/raaihank/anonimizador/internal/metrics"
	"github.com/raaihank/anonimizador/internal/websocket"
	"github.com/raaihank/anonimizador/internal/workflow"
)

// textRequest is the body of /api/process and /api/redact
type textRequest struct {
	Text *string `json:"text" validate:"required"`
}

// processResponse is what the page needs to update its status element
type processResponse struct {
	Status      workflow.Kind `json:"status"`
	Message     string        `json:"message"`
	DownloadURL string        `json:"download_url,omitempty"`
	Matches     int           `json:"matches"`
	RequestID   string        `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// handleProcess runs the full workflow and parks the document for one download
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	text, ok := s.decodeText(w, r)
	if !ok {
		return
	}

	exporter := &export.BlobExporter{
		Store:   s.store,
		TTL:     s.config.Blob.TTL,
		BaseURL: DownloadPrefix,
	}
	processor := workflow.NewProcessor(
		websocket.HubDisplay{Hub: s.wsHub, RequestID: requestID},
		exporter,
		log,
		workflow.WithMessages(s.messages),
		workflow.WithRedactor(s.redactor),
		workflow.WithFilename(s.config.Workflow.Filename),
	)

	outcome, err := processor.Process(r.Context(), text)
	resp := processResponse{
		Status:    outcome.Status.Kind,
		Message:   outcome.Status.Message,
		Matches:   outcome.Matches,
		RequestID: requestID,
	}

	switch {
	case outcome.Skipped:
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, resp)
	default:
		resp.DownloadURL = outcome.Receipt.Location
		s.publishRedaction(requestID, websocket.RedactionEvent{
			InputLength:  len(outcome.Document.Original),
			OutputLength: len(outcome.Document.Anonimizado),
			TotalMatches: outcome.Matches,
			Findings:     outcome.Findings,
			Sink:         outcome.Receipt.Sink,
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleRedact returns the document itself as an attachment
func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())

	text, ok := s.decodeText(w, r)
	if !ok {
		return
	}

	if workflow.IsBlank(text) {
		metrics.RecordBlankInput()
		writeJSON(w, http.StatusUnprocessableEntity, processResponse{
			Status:    workflow.KindPrompt,
			Message:   s.messages.For(workflow.KindPrompt),
			RequestID: requestID,
		})
		return
	}

	result := s.redactor.Redact(text)
	metrics.RecordRedaction(result)
	s.logger.WithRequestID(requestID).LogRedaction(result)

	data, err := export.Encode(result)
	metrics.RecordExport(sinkHTTP, err)
	if err != nil {
		s.logger.WithRequestID(requestID).Error("Failed to encode document", zap.Error(err))
		writeError(w, http.StatusInternalServerError, s.messages.For(workflow.KindFailed), requestID)
		return
	}

	s.publishRedaction(requestID, websocket.NewRedactionEvent(result, sinkHTTP))
	writeAttachment(w, s.config.Workflow.Filename, export.ContentType, data)
}

// handleDownload serves a parked document once
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	token := mux.Vars(r)["token"]

	b, err := s.store.Take(r.Context(), token)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "download not found or already used", requestID)
		return
	}
	if err != nil {
		s.logger.WithRequestID(requestID).Error("Failed to take blob", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "download unavailable", requestID)
		return
	}

	writeAttachment(w, b.Filename, b.ContentType, b.Data)
}

// handleRevoke discards a parked document without serving it
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	token := mux.Vars(r)["token"]

	err := s.store.Revoke(r.Context(), token)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "download not found or already used", requestID)
		return
	}
	if err != nil {
		s.logger.WithRequestID(requestID).Error("Failed to revoke blob", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "download unavailable", requestID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":         "anonimizador",
		"version":      s.build.Version,
		"commit":       s.build.Commit,
		"build_date":   s.build.Date,
		"language":     s.config.Workflow.Language,
		"filename":     s.config.Workflow.Filename,
		"rules":        s.redactor.RuleNames(),
		"blob_backend": s.config.Blob.Backend,
		"uptime":       time.Since(s.startedAt).Round(time.Second).String(),
	}
	if s.wsHub != nil {
		info["websocket_clients"] = s.wsHub.ClientCount()
	}
	writeJSON(w, http.StatusOK, info)
}

// decodeText reads and validates the request body. It writes the error
// response itself and reports false when the handler should stop.
func (s *Server) decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	requestID := getRequestID(r.Context())

	// a character is at most 4 bytes in UTF-8, plus room for the JSON envelope
	limit := int64(s.config.Server.MaxTextLength)*4 + 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", requestID)
			return "", false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", requestID)
		return "", false
	}

	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, `field "text" is required`, requestID)
		return "", false
	}
	if err := s.validate.Var(*req.Text, fmt.Sprintf("max=%d", s.config.Server.MaxTextLength)); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds %d characters", s.config.Server.MaxTextLength), requestID)
		return "", false
	}

	return *req.Text, true
}

func (s *Server) publishRedaction(requestID string, event websocket.RedactionEvent) {
	if s.wsHub == nil {
		return
	}
	if err := s.wsHub.PublishRedaction(requestID, event); err != nil {
		s.logger.WithRequestID(requestID).Debug("Redaction event dropped", zap.Error(err))
	}
}

// sinkHTTP labels documents returned in the response body
const sinkHTTP = "http"

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message, requestID string) {
	writeJSON(w, code, errorResponse{Error: message, RequestID: requestID})
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	if contentType == "" {
		contentType = export.ContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
