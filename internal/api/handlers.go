package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"pyrunner/internal/monitor"
	"pyrunner/internal/pipeline"
	"pyrunner/internal/result"
	"pyrunner/internal/runner"
	"pyrunner/internal/script"
	"pyrunner/internal/storage"
)

type Handlers struct {
	pipeline *pipeline.Pipeline
	db       *storage.DB
	metrics  *monitor.Metrics
}

func NewHandlers(p *pipeline.Pipeline, db *storage.DB, metrics *monitor.Metrics) *Handlers {
	return &Handlers{
		pipeline: p,
		db:       db,
		metrics:  metrics,
	}
}

// HandleRun generates a script from the request and executes it.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRunRequest(w, r)
	if !ok {
		return
	}

	payload, err := h.pipeline.Run(r.Context(), req.toPipeline(r.RemoteAddr))
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

// HandleGenerate composes and syntax-checks a script without executing it.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRunRequest(w, r)
	if !ok {
		return
	}

	text, err := h.pipeline.Generate(req.toPipeline(r.RemoteAddr))
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{Script: text})
}

// HandleExport executes the request and returns downloadable artifacts:
// the script with all injected values redacted, plus a metadata file
// describing the run.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRunRequest(w, r)
	if !ok {
		return
	}

	payload, err := h.pipeline.Run(r.Context(), req.toPipeline(r.RemoteAddr))
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	redactedReq := *req
	opts := script.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	opts.HideValues = true
	redactedReq.Options = &opts

	redacted, err := h.pipeline.Generate(redactedReq.toPipeline(r.RemoteAddr))
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	scriptFile, metadata, err := result.BuildExportArtifacts(redacted, payload.Result)
	if err != nil {
		log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("export build failed")
		writeError(w, "export failed", "EXPORT_FAILED", http.StatusInternalServerError, r)
		return
	}

	writeJSON(w, http.StatusOK, ExportResponse{Files: []result.Artifact{scriptFile, metadata}})
}

func (h *Handlers) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, "execution ID required", "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	if h.db == nil {
		writeError(w, "database not configured", "DB_UNAVAILABLE", http.StatusServiceUnavailable, r)
		return
	}

	exec, err := h.db.GetExecution(r.Context(), id)
	if err != nil {
		writeError(w, "execution not found", "NOT_FOUND", http.StatusNotFound, r)
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

func (h *Handlers) HandleListExecutions(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, "database not configured", "DB_UNAVAILABLE", http.StatusServiceUnavailable, r)
		return
	}

	filter := storage.ExecutionFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  100,
	}

	execs, err := h.db.ListExecutions(r.Context(), filter)
	if err != nil {
		writeError(w, "query failed", "INTERNAL", http.StatusInternalServerError, r)
		return
	}

	writeJSON(w, http.StatusOK, execs)
}

func decodeRunRequest(w http.ResponseWriter, r *http.Request) (*RunRequest, bool) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return nil, false
	}
	if req.Code == "" {
		writeError(w, "code is required", "INVALID_REQUEST", http.StatusBadRequest, r)
		return nil, false
	}
	return &req, true
}

func (h *Handlers) writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	var synErr *script.SyntaxError
	switch {
	case errors.Is(err, runner.ErrInvalidRequest):
		writeError(w, err.Error(), "VALIDATION_ERROR", http.StatusBadRequest, r)
	case errors.As(err, &synErr), errors.Is(err, script.ErrGeneration):
		writeError(w, err.Error(), "GENERATION_ERROR", http.StatusBadRequest, r)
	case runner.IsLaunchFailure(err):
		log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("interpreter unavailable")
		writeError(w, "interpreter unavailable", "RUNNER_UNAVAILABLE", http.StatusServiceUnavailable, r)
	default:
		log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("execution failed")
		writeError(w, "execution failed", "EXECUTION_FAILED", http.StatusInternalServerError, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, msg, code string, status int, r *http.Request) {
	resp := ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	}
	writeJSON(w, status, resp)
}
