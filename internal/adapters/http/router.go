// Package httpadapter exposes the matching pipeline over HTTP: upload a
// document for annotation, trigger a subject reindex, and read upload
// history.
package httpadapter

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/intelliject/intelliject/internal/core/domain"
	"github.com/intelliject/intelliject/internal/core/ports"
	"github.com/intelliject/intelliject/internal/observability/metrics"
)

const (
	serviceName    = "api"
	maxUploadBytes = 50 << 20
)

// SubjectLister reports which subjects currently have a live index.
type SubjectLister interface {
	Subjects() []string
}

type Router struct {
	pipeline  ports.Pipeline
	indexer   ports.CorpusIndexer
	extractor ports.DocumentExtractor
	history   ports.HistoryStore
	subjects  SubjectLister
	metrics   *metrics.PipelineMetrics
	logger    *slog.Logger
}

func NewRouter(
	pipeline ports.Pipeline,
	indexer ports.CorpusIndexer,
	extractor ports.DocumentExtractor,
	history ports.HistoryStore,
	subjects SubjectLister,
	pipelineMetrics *metrics.PipelineMetrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		pipeline:  pipeline,
		indexer:   indexer,
		extractor: extractor,
		history:   history,
		subjects:  subjects,
		metrics:   pipelineMetrics,
		logger:    logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/annotate", rt.annotate)
	mux.HandleFunc("POST /v1/corpus/{subject}/reindex", rt.reindex)
	mux.HandleFunc("GET /v1/history", rt.listHistory)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if rt.subjects != nil {
		resp["subjects"] = rt.subjects.Subjects()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) annotate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	subject := strings.TrimSpace(r.FormValue("subject"))
	if subject == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "form field 'subject' is required"})
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload: " + err.Error()})
		return
	}

	doc, err := rt.extractor.Extract(r.Context(), bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	report, err := rt.pipeline.Process(r.Context(), subject, doc)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordAnnotateRun(serviceName, subject, "error", 0, 0, 0, time.Since(start))
		}
		rt.writeError(w, r, err)
		return
	}

	if rt.history != nil {
		entry := domain.HistoryEntry{
			Filename:  header.Filename,
			Subject:   subject,
			Pages:     len(doc.Pages),
			Matched:   len(report.Results),
			CreatedAt: time.Now().UTC(),
		}
		if err := rt.history.Append(r.Context(), entry); err != nil {
			rt.logger.Error("history_append_failed", "error", err, "filename", header.Filename)
		}
	}
	if rt.metrics != nil {
		retrieved := len(report.Results) + len(report.Failed)
		rt.metrics.RecordAnnotateRun(serviceName, subject, "ok", retrieved, len(report.Results), len(report.Failed), time.Since(start))
	}

	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) reindex(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := strings.TrimSpace(r.PathValue("subject"))
	if subject == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject is required"})
		return
	}

	index, err := rt.indexer.Rebuild(r.Context(), subject)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordIndexRebuild(serviceName, subject, "error", 0, time.Since(start))
		}
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordIndexRebuild(serviceName, subject, "ok", index.Len(), time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subject":  subject,
		"records":  index.Len(),
		"embedder": index.EmbedderIdentity(),
	})
}

func (rt *Router) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := rt.history.ListRecent(r.Context(), limit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
