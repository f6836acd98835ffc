// Package admission gates generation-class requests behind a shared
// rate-limited slot counter.
//
// Admission is advisory, not a hard gate: a failing counting service or an
// exhausted wait window both let the request proceed, because permanently
// blocking a user is worse than occasional over-admission.
package admission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vietddude/genrelay/internal/core/config"
	"github.com/vietddude/genrelay/internal/core/domain"
	"github.com/vietddude/genrelay/internal/metrics"
)

// SlotService is the external counting service handing out generation
// slots. Consumed, not owned, by this package.
type SlotService interface {
	// RequestSlot asks for a slot on the given server within a cooldown
	// window. It returns false when the window is full.
	RequestSlot(ctx context.Context, serverURL string, cooldown time.Duration) (bool, error)
}

var errSlotDenied = errors.New("generation slot denied")

// Controller acquires a slot before a generation-class request proceeds.
type Controller struct {
	svc        SlotService
	cooldown   time.Duration
	maxRetries uint64
	log        *slog.Logger
}

// New creates a controller. svc may be nil when no counting service is
// configured; Acquire is then a no-op beyond the status transition.
func New(svc SlotService, cfg config.AdmissionConfig, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	// A negative retry bound would convert to a huge uint64 and turn the
	// bounded wait into a near-unbounded one.
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Controller{
		svc:        svc,
		cooldown:   cfg.Cooldown,
		maxRetries: uint64(retries),
		log:        log,
	}
}

// Acquire blocks until a slot is granted, the bounded wait window runs out,
// or the counting service fails; every outcome lets the caller proceed.
// Status transitions ("Queueing..." then "Processing...") are emitted
// through the optional sink.
func (c *Controller) Acquire(ctx context.Context, server domain.Server, status domain.StatusFunc) {
	emit(status, "Queueing...")
	defer emit(status, "Processing...")

	if c.svc == nil {
		return
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewConstant(c.cooldown))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		granted, err := c.svc.RequestSlot(ctx, server.URL, c.cooldown)
		if err != nil {
			// Fail open: the counting service's own outage must not block
			// the generation.
			c.log.Warn("Slot service unavailable, proceeding", "server", server.Name, "error", err)
			metrics.AdmissionOutcomes.WithLabelValues(server.Name, "fail_open").Inc()
			return nil
		}
		if !granted {
			return retry.RetryableError(errSlotDenied)
		}
		metrics.AdmissionOutcomes.WithLabelValues(server.Name, "granted").Inc()
		return nil
	})

	if err != nil {
		// Still denied after the bound: proceed anyway rather than hang.
		c.log.Info("Admission window exhausted, proceeding", "server", server.Name)
		metrics.AdmissionOutcomes.WithLabelValues(server.Name, "window_exhausted").Inc()
	}
}

func emit(status domain.StatusFunc, msg string) {
	if status != nil {
		status(msg)
	}
}
