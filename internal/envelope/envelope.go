// Package envelope renders the JSON response envelope shared by the
// middleware and the HTTP handlers.
package envelope

import (
	"encoding/json"
	"log/slog"
	"net/http"

	boardAuth "github.com/MrEthical07/boardAuth"
)

// Body is the wire shape of every response.
type Body struct {
	Success bool       `json:"success"`
	Data    any        `json:"data"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody carries a taxonomy code and its client-safe message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OK writes a 200 response wrapping data.
func OK(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, Body{Success: true, Data: data})
}

// Error classifies err and writes the matching status and code. Detail for
// INTERNAL and CACHE_UNAVAILABLE goes to logger only.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := boardAuth.Classify(err)
	if code == "" {
		code = boardAuth.CodeInternal
	}

	if logger != nil {
		switch code {
		case boardAuth.CodeInternal:
			logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "code", string(code), "error", err)
		case boardAuth.CodeCacheUnavailable:
			logger.WarnContext(r.Context(), "request failed", "path", r.URL.Path, "code", string(code), "error", err)
		}
	}

	if code.Retryable() && code != boardAuth.CodeExpired {
		w.Header().Set("Retry-After", "1")
	}

	write(w, code.HTTPStatus(), Body{
		Success: false,
		Error:   &ErrorBody{Code: string(code), Message: code.Message()},
	})
}

func write(w http.ResponseWriter, status int, body Body) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
