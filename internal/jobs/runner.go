package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Func is one execution of a background job.
type Func func(ctx context.Context) error

// Runner executes jobs and records their outcome. A nil Metrics or Logger
// is allowed.
type Runner struct {
	metrics *Metrics
	logger  *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(metrics *Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{metrics: metrics, logger: logger}
}

// Run executes fn once under timeout (0 means no timeout) and returns its error.
func (r *Runner) Run(ctx context.Context, jobType string, timeout time.Duration, fn Func) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if r.metrics != nil {
		r.metrics.ObserveJobDuration(jobType, elapsed.Seconds())
		if err != nil {
			r.metrics.IncJobsTotal(jobType, StatusFailure)
			r.metrics.IncJobErrors(jobType, errorType(err))
		} else {
			r.metrics.IncJobsTotal(jobType, StatusSuccess)
		}
	}

	if err != nil {
		r.logger.Warn("background job failed",
			"job_type", jobType,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return err
	}
	r.logger.Debug("background job completed",
		"job_type", jobType,
		"duration_ms", elapsed.Milliseconds())
	return nil
}

// RunPeriodic runs fn every interval until ctx is done. It blocks and
// should typically be run in a goroutine. Failures are recorded and the
// schedule continues.
func (r *Runner) RunPeriodic(ctx context.Context, jobType string, interval time.Duration, fn Func) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = r.Run(ctx, jobType, interval, fn)
		case <-ctx.Done():
			r.logger.Debug("stopping periodic job", "job_type", jobType)
			return
		}
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	default:
		return ErrorTypeFailed
	}
}
