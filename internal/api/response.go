// internal/api/response.go
//
// JSON envelope and error mapping.
//
// Every body is `{"success": bool, "data": …, "error": …}`.  Errors carry
// a stable machine code (the network.Kind string) and a message.
// Persistence failures are logged in full and reported without detail.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/stuttter/wp-multi-network-sub000/internal/logger"
	"github.com/stuttter/wp-multi-network-sub000/internal/network"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

// Problem is the error member of a failed Envelope.
type Problem struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

func fail(w http.ResponseWriter, status int, p Problem) {
	writeJSON(w, status, Envelope{Success: false, Error: p})
}

func badRequest(w http.ResponseWriter, msg string) {
	fail(w, http.StatusBadRequest, Problem{Code: network.KindValidation.String(), Message: msg})
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(k network.Kind) int {
	switch k {
	case network.KindNotFound:
		return http.StatusNotFound
	case network.KindConflict:
		return http.StatusConflict
	case network.KindPrecondition:
		return http.StatusPreconditionFailed
	case network.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError classifies err and writes the matching response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := network.KindOf(err)
	status := StatusOf(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Errorw("request failed", "path", r.URL.Path, "kind", kind, "err", err)
		msg = "internal error"
	}
	fail(w, status, Problem{Code: kind.String(), Message: msg})
}
