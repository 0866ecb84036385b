package api

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/edgeprint/pkg/errors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
	Chunk   *int        `json:"chunk,omitempty"`
	Edge    string      `json:"edge,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch errors.GetCategory(err) {
	case errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := errorDetail{Code: errors.GetCode(err), Message: errors.UserMessage(err)}
	if detail.Code == "" {
		detail.Code = errors.ErrCodeInternal
	}

	var e *errors.Error
	if errors.As(err, &e) {
		if e.Chunk >= 0 {
			detail.Chunk = &e.Chunk
		}
		detail.Edge = e.Edge
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			detail.Message = "internal error"
		}
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
