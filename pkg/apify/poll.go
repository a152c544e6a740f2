package apify

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ad-scout/internal/resilience"
)

const (
	defaultPollInitial = 5 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 4 * time.Minute
)

var (
	// ErrRunFailed means the actor run reached a terminal non-success status.
	// Retrying the same pair is not expected to help.
	ErrRunFailed = eris.New("apify: run failed")

	// ErrRunTimeout means the run did not finish before the poll deadline. It
	// is always wrapped in a resilience.TransientError.
	ErrRunTimeout = eris.New("apify: run timed out")
)

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.initial = d
		}
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.cap = d
		}
	}
}

// WithPollTimeout overrides the default timeout. It applies only when the
// parent context has no deadline.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// PollRun polls GetRun until the run succeeds, fails, or the context expires.
// Backoff doubles from the initial interval up to the cap: 5s -> 10s -> 15s.
//
// A terminal status returns an error wrapping ErrRunFailed. Running out of
// time returns a TransientError wrapping ErrRunTimeout and the context error.
func PollRun(ctx context.Context, client Client, runID string, opts ...PollOption) (*Run, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for {
		run, err := client.GetRun(ctx, runID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, timeoutErr(ctx, runID)
			}
			return nil, eris.Wrapf(err, "apify: poll run %s", runID)
		}

		zap.L().Debug("apify: run status",
			zap.String("run_id", runID),
			zap.String("status", run.Status),
		)

		switch run.Status {
		case StatusSucceeded:
			if run.DefaultDatasetID == "" {
				return nil, eris.Wrapf(ErrRunFailed, "run %s succeeded without a dataset", runID)
			}
			return run, nil
		case StatusFailed, StatusAborted, StatusTimedOut:
			msg := run.StatusMessage
			if msg == "" {
				msg = "unknown error"
			}
			return nil, eris.Wrapf(ErrRunFailed, "run %s %s: %s", runID, run.Status, msg)
		}

		select {
		case <-ctx.Done():
			return nil, timeoutErr(ctx, runID)
		case <-time.After(interval):
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}

func timeoutErr(ctx context.Context, runID string) error {
	return resilience.NewTransientError(
		errors.Join(eris.Wrapf(ErrRunTimeout, "run %s", runID), ctx.Err()), 0)
}
