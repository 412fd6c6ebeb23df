// internal/app/features/errors/render.go

// Package errors renders the JSON response envelope every endpoint uses
// and provides the ErrorLogger handlers log failures through.
//
// Every response body carries a "response" field of "OK" or "ERROR";
// error bodies add a human-readable "text". Machine-readable detail, when
// an endpoint has any, rides alongside in extra fields.
package errors

import (
	"encoding/json"
	"net/http"
)

// RenderOK writes a 200 with the OK envelope merged with extra fields.
// Pass nil when the envelope alone is the answer.
func RenderOK(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"response": "OK"}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// RenderError writes status with the ERROR envelope.
func RenderError(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"response": "ERROR",
		"text":     text,
	})
}

// NotFound is the catch-all for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	RenderError(w, http.StatusNotFound, "No such endpoint.")
}
