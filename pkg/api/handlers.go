package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/01phanto/EcoLedger/pkg/contracts"
	"github.com/01phanto/EcoLedger/pkg/service"
)

const maxBodyBytes = 1 << 20

// Server serves the node's HTTP API.
type Server struct {
	svc      *service.Service
	schemas  schemaSet
	limiter  *RateLimiter
	upgrader websocket.Upgrader
	logger   *slog.Logger

	quit     chan struct{}
	quitOnce sync.Once
}

type Option func(*Server)

// WithRateLimit enables per-IP rate limiting. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = NewRateLimiter(rps, burst)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer compiles the request schemas and builds the server.
func NewServer(svc *service.Service, opts ...Option) (*Server, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	s := &Server{
		svc:     svc,
		schemas: schemas,
		logger:  slog.Default().With("component", "api"),
		quit:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the routed, logged and rate limited handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /finalscore", s.handleFinalScore)
	mux.HandleFunc("POST /finalscore/batch", s.handleBatch)
	mux.HandleFunc("POST /co2", s.handleCO2)
	mux.HandleFunc("POST /co2/plantation", s.handlePlantation)
	mux.HandleFunc("POST /ledger/submit", s.handleSubmit)
	mux.HandleFunc("GET /ledger/query/{report_id}", s.handleQuery)
	mux.HandleFunc("POST /ledger/issue", s.handleIssue)
	mux.HandleFunc("POST /ledger/issue/verified", s.handleIssueVerified)
	mux.HandleFunc("POST /ledger/transfer", s.handleTransfer)
	mux.HandleFunc("GET /ledger/marketplace", s.handleMarketplace)
	mux.HandleFunc("GET /ledger/holdings/{holder_id}", s.handleHoldings)
	mux.HandleFunc("GET /ledger/stats", s.handleStats)
	mux.HandleFunc("GET /ledger/verify", s.handleVerify)
	mux.HandleFunc("GET /ledger/pending", s.handlePending)
	mux.HandleFunc("GET /ledger/feed", s.handleFeed)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "No route for "+r.Method+" "+r.URL.Path)
	})

	var h http.Handler = mux
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	return RequestLogger(s.logger, h)
}

// Close stops the rate limiter and disconnects feed subscribers.
func (s *Server) Close() {
	s.quitOnce.Do(func() {
		close(s.quit)
		if s.limiter != nil {
			s.limiter.Stop()
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a size-limited body, validates it against the named schema
// and unmarshals it into dst. It writes the error response itself.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorR(w, r, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Request body exceeds 1 MiB")
			return false
		}
		WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	if err := s.schemas.validate(schema, body); err != nil {
		WriteServiceError(w, r, err)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "ecoledger",
		"backend": s.svc.Chain().Backend(),
	})
}

func (s *Server) handleFinalScore(w http.ResponseWriter, r *http.Request) {
	var in contracts.VerificationInput
	if !s.decode(w, r, schemaVerificationInput, &in) {
		return
	}
	report, err := s.svc.ScoreOnly(r.Context(), in)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type batchRequest struct {
	Projects []contracts.VerificationInput `json:"projects"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, schemaBatch, &req) {
		return
	}
	results, summary := s.svc.ScoreBatch(r.Context(), req.Projects)
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"summary": summary,
	})
}

func (s *Server) handleCO2(w http.ResponseWriter, r *http.Request) {
	var req service.EstimateRequest
	if !s.decode(w, r, schemaCO2, &req) {
		return
	}
	res, err := s.svc.EstimateCO2(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type plantationRequest struct {
	AreaHectares    float64 `json:"area_hectares"`
	TreesPerHectare float64 `json:"trees_per_hectare"`
}

func (s *Server) handlePlantation(w http.ResponseWriter, r *http.Request) {
	var req plantationRequest
	if !s.decode(w, r, schemaPlantation, &req) {
		return
	}
	res, err := s.svc.PlantationPotential(r.Context(), req.AreaHectares, req.TreesPerHectare)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var in contracts.VerificationInput
	if !s.decode(w, r, schemaVerificationInput, &in) {
		return
	}
	res, err := s.svc.SubmitReport(r.Context(), in)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.GetReport(r.Context(), r.PathValue("report_id"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req service.IssueRequest
	if !s.decode(w, r, schemaIssue, &req) {
		return
	}
	res, err := s.svc.IssueCredits(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleIssueVerified(w http.ResponseWriter, r *http.Request) {
	var req service.VerifiedIssueRequest
	if !s.decode(w, r, schemaIssueVerified, &req) {
		return
	}
	res, err := s.svc.IssueVerifiedCredits(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req service.TransferRequest
	if !s.decode(w, r, schemaTransfer, &req) {
		return
	}
	res, err := s.svc.TransferCredits(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleMarketplace(w http.ResponseWriter, r *http.Request) {
	holders := s.svc.ListMarketplace(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"marketplace": holders,
		"count":       len(holders),
	})
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Holdings(r.Context(), r.PathValue("holder_id"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Stats(r.Context()))
}

type verifyResponse struct {
	Valid     bool      `json:"valid"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// handleVerify reports corruption in the body; only unexpected failures are 500s.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Verify(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, verifyResponse{Valid: true, CheckedAt: time.Now().UTC()})
	case errors.Is(err, contracts.ErrChainCorrupted):
		s.logger.ErrorContext(r.Context(), "ledger verification failed", "error", err)
		writeJSON(w, http.StatusOK, verifyResponse{Detail: err.Error(), CheckedAt: time.Now().UTC()})
	default:
		WriteInternal(w, err)
	}
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	pending := s.svc.PendingRelay(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"count":   len(pending),
	})
}
