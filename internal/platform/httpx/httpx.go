package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// JSON encodes payload before writing the status; a payload that cannot be
// encoded becomes a 500.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"status":"error","detail":"Internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// OK writes {"status":"ok", <key>: payload}.
func OK(w http.ResponseWriter, key string, payload interface{}) {
	JSON(w, http.StatusOK, map[string]interface{}{"status": "ok", key: payload})
}

func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, map[string]string{"status": "error", "detail": detail})
}

// Int64Param parses a decimal id; ok is false for empty or malformed input.
func Int64Param(raw string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
