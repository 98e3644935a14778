package authapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// defaultMaxBodyBytes bounds request bodies when the configured limit
// is unset; auth payloads are a handful of short strings.
const defaultMaxBodyBytes = 1 << 20

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorResponse is the wire shape of every relay error:
// {"error":{"code":...,"message":...}}. Clients key retry and redirect
// behavior off the code, never the message.
type errorResponse struct {
	Error apiError `json:"error"`
}

// writeJSON sends v with no-store caching; auth responses carry
// credentials and must never land in a shared cache.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

// decodeJSON reads exactly one JSON value into dst, rejecting unknown
// fields, oversized bodies, and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON value")
	}
	return nil
}
