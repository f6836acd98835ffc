package dispatch

import (
	"encoding/json"
	"testing"
)

func TestTerminalFailure(t *testing.T) {
	tests := []struct {
		status   int
		message  string
		terminal bool
	}{
		{400, "invalid request", true},
		{200, "prompt blocked by content filter", true},
		{422, "Safety system rejected the prompt", true},
		{500, "BLOCKED", true},
		{401, "unauthorized", false},
		{429, "too many requests", false},
		{500, "internal server error", false},
		{503, "service unavailable", false},
	}

	for _, tt := range tests {
		if got := terminalFailure(tt.status, tt.message); got != tt.terminal {
			t.Errorf("terminalFailure(%d, %q) = %v, want %v", tt.status, tt.message, got, tt.terminal)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body    string
		want    string
		wantOK  bool
	}{
		{`{"error": {"message": "quota exceeded"}}`, "quota exceeded", true},
		{`{"message": "bad gateway"}`, "bad gateway", true},
		{`{"error": {"message": "nested wins"}, "message": "flat loses"}`, "nested wins", true},
		{`{"result": "ok"}`, "", false},
		{`{}`, "", false},
	}

	for _, tt := range tests {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal([]byte(tt.body), &envelope); err != nil {
			t.Fatalf("bad fixture %q: %v", tt.body, err)
		}
		got, ok := errorMessage(envelope)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("errorMessage(%s) = (%q, %v), want (%q, %v)", tt.body, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestHasResult(t *testing.T) {
	tests := []struct {
		body string
		key  string
		want bool
	}{
		{`{"result": {"images": ["a"]}}`, "result", true},
		{`{"result": null}`, "result", false},
		{`{"other": 1}`, "result", false},
		{`{"videos": []}`, "videos", true},
	}

	for _, tt := range tests {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal([]byte(tt.body), &envelope); err != nil {
			t.Fatalf("bad fixture %q: %v", tt.body, err)
		}
		if got := hasResult(envelope, tt.key); got != tt.want {
			t.Errorf("hasResult(%s, %q) = %v, want %v", tt.body, tt.key, got, tt.want)
		}
	}
}
