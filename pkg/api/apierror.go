// Package api exposes the EcoLedger service over HTTP. Errors use RFC 7807
// problem details.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`

	// Field names the offending input for validation problems.
	Field string `json:"field,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

func problemType(status int) string {
	return fmt.Sprintf("https://ecoledger.dev/errors/%d", status)
}

func writeProblem(w http.ResponseWriter, p *ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteError writes an RFC 7807 Problem Detail JSON response.
func WriteError(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, &ProblemDetail{
		Type:   problemType(status),
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// WriteErrorR writes a problem enriched with the request path and request id.
func WriteErrorR(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	writeProblem(w, &ProblemDetail{
		Type:     problemType(status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		TraceID:  w.Header().Get("X-Request-ID"),
	})
}

func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, "Bad Request", detail)
}

func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, "Not Found", detail)
}

// WriteTooManyRequests writes a 429 with a Retry-After header.
func WriteTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	WriteError(w, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded. Retry after the specified interval.")
}

// WriteInternal writes a 500. err is logged, never sent to the client.
func WriteInternal(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred. Please try again later.")
}

// WriteServiceError maps domain errors onto problem responses.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *contracts.ValidationError
		nerr *contracts.NotFoundError
		ierr *contracts.InsufficientBalanceError
	)
	switch {
	case errors.As(err, &verr):
		p := problemFor(w, r, http.StatusBadRequest, "Validation Failed", verr.Error())
		p.Field = verr.Field
		writeProblem(w, p)
	case errors.As(err, &nerr):
		writeProblem(w, problemFor(w, r, http.StatusNotFound, "Not Found", nerr.Error()))
	case errors.As(err, &ierr):
		writeProblem(w, problemFor(w, r, http.StatusConflict, "Insufficient Balance", ierr.Error()))
	default:
		slog.ErrorContext(r.Context(), "internal server error", "path", r.URL.Path, "error", err)
		writeProblem(w, problemFor(w, r, http.StatusInternalServerError, "Internal Server Error",
			"An unexpected error occurred. Please try again later."))
	}
}

func problemFor(w http.ResponseWriter, r *http.Request, status int, title, detail string) *ProblemDetail {
	return &ProblemDetail{
		Type:     problemType(status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		TraceID:  w.Header().Get("X-Request-ID"),
	}
}
