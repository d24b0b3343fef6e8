package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/atlashist/archive-assistant/internal/core/domain"
	"github.com/atlashist/archive-assistant/internal/core/ports"
	"github.com/atlashist/archive-assistant/internal/observability/metrics"
)

const serviceName = "api"

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

type Router struct {
	ingestUC ports.DocumentIngestor
	queryUC  ports.QuestionService
	reader   ports.DocumentReader
	registry ports.CorpusRegistry
	metrics  *metrics.HTTPServerMetrics
	cfg      Config
}

func NewRouter(
	ingestUC ports.DocumentIngestor,
	queryUC ports.QuestionService,
	reader ports.DocumentReader,
	registry ports.CorpusRegistry,
	m *metrics.HTTPServerMetrics,
	cfg Config,
) *Router {
	return &Router{
		ingestUC: ingestUC,
		queryUC:  queryUC,
		reader:   reader,
		registry: registry,
		metrics:  m,
		cfg:      cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/corpora", rt.listCorpora)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/retrieve", rt.retrievePassages)
	mux.HandleFunc("/v1/ask", rt.askQuestion)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst, handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) listCorpora(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ids := rt.registry.List()
	corpora := make([]domain.CorpusInfo, 0, len(ids))
	for _, id := range ids {
		if info, ok := rt.registry.Describe(id); ok {
			corpora = append(corpora, info)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"corpora": corpora})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	corpus := r.FormValue("corpus")
	metadata := documentMetadataFromForm(r)

	doc, err := rt.ingestUC.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		corpus,
		metadata,
		file,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

// documentMetadataFromForm treats every plain form field except the upload
// controls as archival metadata (date, source_url, author, page, ...).
func documentMetadataFromForm(r *http.Request) map[string]string {
	if r.MultipartForm == nil {
		return nil
	}
	metadata := make(map[string]string)
	for key, values := range r.MultipartForm.Value {
		if key == "corpus" || len(values) == 0 {
			continue
		}
		value := strings.TrimSpace(values[0])
		if value != "" {
			metadata[key] = value
		}
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type searchRequest struct {
	Query       string   `json:"query"`
	Question    string   `json:"question"`
	Corpus      string   `json:"corpus"`
	Limit       int      `json:"limit"`
	BoostFields []string `json:"boost_fields"`
}

func (req *searchRequest) text() string {
	if strings.TrimSpace(req.Query) != "" {
		return req.Query
	}
	return req.Question
}

func (rt *Router) retrievePassages(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	passages, err := rt.queryUC.Search(r.Context(), req.text(), req.Corpus, req.Limit, req.BoostFields)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordQA(serviceName, "retrieve", req.Corpus, len(passages), time.Since(start))
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": passages})
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	answer, err := rt.queryUC.Answer(r.Context(), req.text(), req.Corpus, req.Limit, req.BoostFields)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordQA(serviceName, "ask", req.Corpus, len(answer.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (searchRequest, bool) {
	var req searchRequest
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return req, false
	}
	if strings.TrimSpace(req.text()) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return req, false
	}
	return req, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), userFacingMessage(err))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func userFacingMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrRetrievalUnavailable):
		return "unable to search sources right now"
	case domain.IsKind(err, domain.ErrInvalidCorpus):
		return "unknown corpus"
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return "document not found"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid request"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporarily unavailable"
	default:
		return "internal error"
	}
}
