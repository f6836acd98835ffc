package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/genrelay/internal/core/domain"
	"github.com/vietddude/genrelay/internal/directory"
	"github.com/vietddude/genrelay/internal/infra/admission"
	"github.com/vietddude/genrelay/internal/metrics"
	"github.com/vietddude/genrelay/internal/report"
)

const summaryMaxLen = 120

// Dispatcher is the high-level entry point: admission gate for
// generation-class calls, plan building, sequential execution, and failure
// reporting on exhaustion.
//
// Dispatchers are safe for concurrent use; independent calls share no
// mutable state beyond the read-only credential store and server directory.
type Dispatcher struct {
	planner   *Planner
	exec      *Executor
	admission *admission.Controller
	dir       *directory.Directory
	reporter  report.Reporter
	log       *slog.Logger
}

// New wires a dispatcher. admission and reporter may be nil.
func New(
	planner *Planner,
	exec *Executor,
	ctrl *admission.Controller,
	dir *directory.Directory,
	reporter report.Reporter,
	log *slog.Logger,
) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		planner:   planner,
		exec:      exec,
		admission: ctrl,
		dir:       dir,
		reporter:  reporter,
		log:       log,
	}
}

// Do performs one dispatch. On success it returns the payload and the
// credential that worked; persisting that credential as a new preferred one
// is the caller's decision. A successful backup-server attempt does not
// change the preferred server for future calls.
func (d *Dispatcher) Do(ctx context.Context, req Request) (*Result, error) {
	id := uuid.NewString()

	if req.Class == domain.ClassGeneration && d.admission != nil {
		if current, err := d.dir.Current(req.Service); err == nil {
			d.admission.Acquire(ctx, current, req.Status)
		}
	}

	plan, err := d.planner.Build(req.Service, req.Credential, req.ExactOnly)
	if err != nil {
		if errors.Is(err, domain.ErrNoCredentials) {
			metrics.DispatchFailures.WithLabelValues(string(req.Service), "precondition").Inc()
		}
		return nil, err
	}

	d.log.Debug("Attempt plan built", "dispatch", id, "label", req.Label, "attempts", len(plan))

	res, err := d.exec.Run(ctx, plan, req)
	if err != nil {
		d.recordFailure(ctx, id, req, err)
		return nil, err
	}

	return res, nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, id string, req Request, err error) {
	var term *domain.TerminalError
	if errors.As(err, &term) {
		metrics.DispatchFailures.WithLabelValues(string(req.Service), "terminal").Inc()
		return
	}

	var exh *domain.ExhaustedError
	if !errors.As(err, &exh) {
		return
	}
	metrics.DispatchFailures.WithLabelValues(string(req.Service), "exhausted").Inc()

	// Only robust, user-initiated generations are reported; strict calls
	// and probes would spam the failure log with routine probing.
	if req.Credential != nil || req.Class == domain.ClassProbe || d.reporter == nil {
		return
	}

	errText := ""
	if exh.Err != nil {
		errText = exh.Err.Error()
	}
	d.reporter.ReportFailure(ctx, domain.FailureRecord{
		ID:        id,
		Label:     req.Label,
		Summary:   domain.TruncateSummary(req.Summary, summaryMaxLen),
		Error:     errText,
		Attempts:  exh.Attempts,
		Status:    domain.FailureExhausted,
		CreatedAt: time.Now(),
	})
}
