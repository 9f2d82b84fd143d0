package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

const (
	codeValidation    = string(domain.CodeValidation)
	codeNotFound      = string(domain.CodeNotFound)
	codeConflict      = string(domain.CodeConflict)
	codeExpired       = string(domain.CodeExpired)
	codeRateLimited   = "rate_limited"
	codeForbidden     = "forbidden"
	codeInternalError = "internal_error"
)

type dataEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dataEnvelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorEnvelope{Error: msg, Code: code})
	if err != nil {
		_, _ = w.Write([]byte(`{"success":false,"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps a service error onto the response taxonomy. Errors
// outside the domain never leak their message.
func writeServiceError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	switch code {
	case domain.CodeValidation:
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case domain.CodeNotFound:
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case domain.CodeConflict:
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case domain.CodeExpired:
		writeError(w, http.StatusGone, codeExpired, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, codeValidation, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return false
	}
	return true
}
