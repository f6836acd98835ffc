package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/genrelay/internal/core/domain"
	"github.com/vietddude/genrelay/internal/metrics"
)

const defaultResultKey = "result"

// Request describes one logical dispatch call.
type Request struct {
	Service domain.ServiceType
	Path    string // logical request path, e.g. "/generate"
	Body    any    // JSON-serializable payload, opaque to the dispatcher

	// Class tags generation-class calls for admission control and
	// reporting. Probes skip both.
	Class domain.RequestClass

	// Credential, when set, switches the plan to strict mode.
	Credential *domain.Credential

	// ExactOnly suppresses strict-mode fallbacks for pure integrity checks.
	ExactOnly bool

	// ResultKey is the response field whose presence marks success
	// (default "result").
	ResultKey string

	Label   string            // context label for failure records
	Summary string            // prompt/summary, truncated when reported
	Status  domain.StatusFunc // optional progress sink
}

// Result is a successful dispatch outcome. Credential is the pair that
// worked, so the caller can persist it as last known good.
type Result struct {
	Payload    json.RawMessage
	Credential domain.Credential
	Attempts   int
}

// Executor walks an attempt plan sequentially. Attempts are never run
// concurrently within one call, so ordering and classification stay
// deterministic and auditable from logs.
type Executor struct {
	client   *http.Client
	username string
	log      *slog.Logger
}

// NewExecutor creates an executor. username is sent as the caller identity
// header; empty degrades to "unknown".
func NewExecutor(timeout time.Duration, username string, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	if username == "" {
		username = "unknown"
	}
	return &Executor{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		username: username,
		log:      log,
	}
}

type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeRetry
	outcomeTerminal
)

// Run iterates the plan in order. It returns on the first success, aborts
// immediately on a terminal failure, and wraps the last transient error as
// an ExhaustedError when every pair failed.
func (e *Executor) Run(ctx context.Context, plan []domain.AttemptPair, req Request) (*Result, error) {
	body, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	resultKey := req.ResultKey
	if resultKey == "" {
		resultKey = defaultResultKey
	}

	var lastErr error
	for i, pair := range plan {
		e.log.Info("Dispatching attempt",
			"attempt", i+1,
			"total", len(plan),
			"provenance", pair.Credential.Provenance,
			"server", pair.Server.Name,
			"credential", pair.Credential.Fingerprint(),
		)

		start := time.Now()
		payload, outcome, err := e.attempt(ctx, pair, req, body, resultKey)
		metrics.AttemptLatency.WithLabelValues(string(req.Service), pair.Server.Name).
			Observe(time.Since(start).Seconds())

		switch outcome {
		case outcomeSuccess:
			metrics.AttemptsTotal.WithLabelValues(
				string(req.Service), string(pair.Credential.Provenance), pair.Server.Name, "success",
			).Inc()
			return &Result{Payload: payload, Credential: pair.Credential, Attempts: i + 1}, nil

		case outcomeTerminal:
			metrics.AttemptsTotal.WithLabelValues(
				string(req.Service), string(pair.Credential.Provenance), pair.Server.Name, "terminal",
			).Inc()
			e.log.Warn("Attempt rejected, aborting plan", "attempt", i+1, "error", err)
			return nil, err

		case outcomeRetry:
			metrics.AttemptsTotal.WithLabelValues(
				string(req.Service), string(pair.Credential.Provenance), pair.Server.Name, "retry",
			).Inc()
			e.log.Warn("Attempt failed, advancing", "attempt", i+1, "error", err)
			lastErr = err
		}
	}

	return nil, &domain.ExhaustedError{Attempts: len(plan), Err: lastErr}
}

func (e *Executor) attempt(
	ctx context.Context,
	pair domain.AttemptPair,
	req Request,
	body []byte,
	resultKey string,
) (json.RawMessage, attemptOutcome, error) {
	endpoint := strings.TrimRight(pair.Server.URL, "/") +
		"/api/" + string(req.Service) + req.Path

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, outcomeRetry, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+pair.Credential.Token)
	httpReq.Header.Set("x-user-username", e.username)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		// Transport failure: connection error or timeout.
		return nil, outcomeRetry, fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, outcomeRetry, fmt.Errorf("read response: %w", err)
	}

	var envelope map[string]json.RawMessage
	parseable := json.Unmarshal(raw, &envelope) == nil
	ok2xx := resp.StatusCode >= 200 && resp.StatusCode < 300

	if parseable && ok2xx && hasResult(envelope, resultKey) {
		return raw, outcomeSuccess, nil
	}

	var msg string
	hasMsg := false
	if parseable {
		msg, hasMsg = errorMessage(envelope)
	}
	if !hasMsg {
		if ok2xx {
			// 2xx without the expected result field: observed as a
			// transient upstream issue, not a rejection.
			return nil, outcomeRetry, errors.New("no result returned")
		}
		// Unparseable or empty error body must not crash the loop:
		// synthesize a message carrying the raw status.
		msg = fmt.Sprintf("http %d: unparseable response body", resp.StatusCode)
	}

	if terminalFailure(resp.StatusCode, msg) {
		return nil, outcomeTerminal, &domain.TerminalError{StatusCode: resp.StatusCode, Message: msg}
	}

	return nil, outcomeRetry, fmt.Errorf("http %d: %s", resp.StatusCode, msg)
}
