package middleware

import (
	"encoding/json"
	"net/http"

	adminauth "github.com/draycottmotors/adminauth"
)

// WriteError writes the client-facing JSON error envelope. Internal
// detail never travels through here; callers log it separately.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(adminauth.Envelope{Error: message, Code: code})
}
