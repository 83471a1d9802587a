package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/heapdiff/internal/analysis"
	"github.com/five82/heapdiff/internal/state"
)

const (
	defaultPollInterval = 2 * time.Second
	maxBackoff          = 30 * time.Second
)

// Dispatcher receives the poller's results.
type Dispatcher interface {
	Dispatch(state.Action)
}

// StartPoller launches a background goroutine that lists snapshots at a
// fixed cadence, backing off while listing keeps failing. It returns
// immediately; the returned channel is closed once the goroutine exits.
func StartPoller(ctx context.Context, store Dispatcher, lister analysis.Lister, interval time.Duration, log logrus.FieldLogger) <-chan struct{} {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "poller")

	done := make(chan struct{})
	go func() {
		defer close(done)
		failures := 0
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			if err := refresh(ctx, store, lister, log); err != nil {
				failures++
			} else {
				failures = 0
			}
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
	return done
}

// refresh lists snapshots once and dispatches the outcome.
func refresh(ctx context.Context, store Dispatcher, lister analysis.Lister, log logrus.FieldLogger) error {
	snaps, err := lister.ListSnapshots(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		store.Dispatch(state.SnapshotsListError{Err: err})
		log.WithError(err).Warn("snapshot poll failed")
		return err
	}
	store.Dispatch(state.SnapshotsListed{Snapshots: snaps})
	return nil
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
