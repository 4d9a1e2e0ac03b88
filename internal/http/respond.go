package httpx

import (
	"encoding/json"
	"net/http"
)

// writeJSON encodes payload as the response body. The status line is already
// out if encoding fails, so the error is dropped rather than half-reported.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits the {"error": msg} body every handler shares, including
// what collectors see on rejected pushes.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
