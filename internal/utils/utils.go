package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
)

// maxBodyBytes caps JSON request bodies; a price submission is a few dozen bytes.
const maxBodyBytes = 1 << 16

var ErrNotJSON = errors.New("content type must be application/json")

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"message": msg,
	})
}

// WriteKindError is WriteError with the stable machine-readable error kind attached.
func WriteKindError(w http.ResponseWriter, status int, kind string, msg string) {
	WriteJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"kind":    kind,
		"message": msg,
	})
}

// DecodeJSON decodes a JSON request body into v. It rejects requests that do not
// declare an application/json content type with ErrNotJSON.
func DecodeJSON(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return ErrNotJSON
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
