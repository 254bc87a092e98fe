package utils

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v under a success envelope.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "success",
		"data":   v,
	})
}

// WriteError writes a failure envelope. The message is the only detail
// exposed to callers; internal errors are logged by the handler instead.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "error",
		"message": message,
	})
}
