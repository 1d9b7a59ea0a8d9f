package surfe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultPollTimeout  = 5 * time.Minute
)

// JobFailedError reports a remote enrichment job that reached the failed
// terminal state. Reason carries the remote-provided message, if any.
type JobFailedError struct {
	JobID  string
	Reason string
}

func (e *JobFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("surfe: job %s failed", e.JobID)
	}
	return fmt.Sprintf("surfe: job %s failed: %s", e.JobID, e.Reason)
}

// JobTimeoutError reports that local polling exceeded its budget before the
// job reached a terminal state. The job may still complete remotely; JobID is
// preserved so the caller can inspect it later.
type JobTimeoutError struct {
	JobID string
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("surfe: polling job %s timed out, the job may still be processing", e.JobID)
}

// JobCancelledError reports that the caller cancelled polling. The remote job
// is not cancelled, only local polling stops.
type JobCancelledError struct {
	JobID string
}

func (e *JobCancelledError) Error() string {
	return fmt.Sprintf("surfe: polling job %s cancelled", e.JobID)
}

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval time.Duration
	timeout  time.Duration
	onPoll   func(attempt int, status *EnrichmentStatus)
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		interval: defaultPollInterval,
		timeout:  defaultPollTimeout,
	}
}

// WithPollInterval overrides the fixed wait between polls.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.interval = d
	}
}

// WithPollTimeout overrides the default overall polling budget (applied only
// if the parent context has no deadline).
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

// WithPollProgress registers a hook invoked after every poll with the attempt
// number and the remote status, for progress display.
func WithPollProgress(fn func(attempt int, status *EnrichmentStatus)) PollOption {
	return func(c *pollConfig) {
		c.onPoll = fn
	}
}

// PollCompanyEnrichment polls a company enrichment job until it completes,
// fails, times out, or the context is cancelled.
func PollCompanyEnrichment(ctx context.Context, client Client, jobID string, opts ...PollOption) (*EnrichmentStatus, error) {
	return poll(ctx, client.GetCompanyEnrichment, jobID, opts)
}

// PollPeopleEnrichment polls a people enrichment job until it completes,
// fails, times out, or the context is cancelled.
func PollPeopleEnrichment(ctx context.Context, client Client, jobID string, opts ...PollOption) (*EnrichmentStatus, error) {
	return poll(ctx, client.GetPeopleEnrichment, jobID, opts)
}

// poll waits a fixed interval between attempts and never resubmits the job.
// It returns exactly one of: the completed payload, a JobFailedError, a
// JobTimeoutError, or a JobCancelledError. Cancellation is observed only at
// wait boundaries; an in-flight poll call is not interrupted beyond the
// per-call timeout.
func poll(ctx context.Context, fetch func(context.Context, string) (*EnrichmentStatus, error), jobID string, opts []PollOption) (*EnrichmentStatus, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		status, err := fetch(ctx, jobID)
		if err != nil {
			if terminal := terminalCtxError(ctx, jobID); terminal != nil {
				return nil, terminal
			}
			return nil, eris.Wrap(err, fmt.Sprintf("surfe: poll job %s", jobID))
		}

		if cfg.onPoll != nil {
			cfg.onPoll(attempt, status)
		}

		switch status.Status {
		case StatusCompleted:
			return status, nil
		case StatusFailed:
			return nil, &JobFailedError{JobID: jobID, Reason: status.Message}
		}

		select {
		case <-ctx.Done():
			return nil, terminalCtxError(ctx, jobID)
		case <-time.After(cfg.interval):
		}
	}
}

// terminalCtxError maps a finished context to the matching poll outcome.
func terminalCtxError(ctx context.Context, jobID string) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &JobTimeoutError{JobID: jobID}
	case errors.Is(ctx.Err(), context.Canceled):
		return &JobCancelledError{JobID: jobID}
	default:
		return nil
	}
}
