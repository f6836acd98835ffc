package dispatch

import (
	"encoding/json"
	"net/http"
	"strings"
)

// terminalFailure reports whether a failed attempt can never succeed on
// another (credential, server) pair. HTTP 400 and safety-filter phrasing
// mean the request content itself was rejected; swapping credentials only
// wastes quota and masks the real cause.
func terminalFailure(statusCode int, message string) bool {
	if statusCode == http.StatusBadRequest {
		return true
	}
	m := strings.ToLower(message)
	return strings.Contains(m, "safety") || strings.Contains(m, "blocked")
}

// errorMessage extracts the human-readable cause from a response envelope:
// error.message first, then a top-level message.
func errorMessage(envelope map[string]json.RawMessage) (string, bool) {
	if raw, ok := envelope["error"]; ok {
		var e struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &e); err == nil && e.Message != "" {
			return e.Message, true
		}
	}

	if raw, ok := envelope["message"]; ok {
		var m string
		if err := json.Unmarshal(raw, &m); err == nil && m != "" {
			return m, true
		}
	}

	return "", false
}

// hasResult reports whether the envelope carries a non-null value under the
// expected result key.
func hasResult(envelope map[string]json.RawMessage, key string) bool {
	raw, ok := envelope[key]
	if !ok {
		return false
	}
	return string(raw) != "null"
}
