// Package report delivers structured failure records to the logging
// collaborator. Reporting is fire-and-forget: a reporter never fails the
// dispatch that invoked it.
package report

import (
	"context"
	"log/slog"

	"github.com/vietddude/genrelay/internal/core/domain"
)

// Reporter accepts one failure record per exhausted dispatch.
type Reporter interface {
	ReportFailure(ctx context.Context, rec domain.FailureRecord)
}

// LogReporter writes failure records to structured logs.
type LogReporter struct {
	log *slog.Logger
}

func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{log: log}
}

func (r *LogReporter) ReportFailure(_ context.Context, rec domain.FailureRecord) {
	r.log.Error("Dispatch exhausted",
		"id", rec.ID,
		"label", rec.Label,
		"summary", rec.Summary,
		"error", rec.Error,
		"attempts", rec.Attempts,
		"status", rec.Status,
	)
}

// FailureStore persists failure records.
type FailureStore interface {
	Save(ctx context.Context, rec *domain.FailureRecord) error
}

// StoreReporter persists failure records through a FailureStore. Write
// errors are logged and swallowed.
type StoreReporter struct {
	store FailureStore
	log   *slog.Logger
}

func NewStoreReporter(store FailureStore, log *slog.Logger) *StoreReporter {
	if log == nil {
		log = slog.Default()
	}
	return &StoreReporter{store: store, log: log}
}

func (r *StoreReporter) ReportFailure(ctx context.Context, rec domain.FailureRecord) {
	if err := r.store.Save(ctx, &rec); err != nil {
		r.log.Warn("Failed to persist failure record", "id", rec.ID, "error", err)
	}
}

// Multi fans a record out to several reporters.
type Multi []Reporter

func (m Multi) ReportFailure(ctx context.Context, rec domain.FailureRecord) {
	for _, r := range m {
		r.ReportFailure(ctx, rec)
	}
}
