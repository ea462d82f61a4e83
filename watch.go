package scansync

import (
	"context"
	"time"

	"github.com/agentstation/scansync/pkg/logging"
	"github.com/agentstation/scansync/pkg/reconciler"
	"github.com/agentstation/scansync/pkg/selection"
)

// Watcher controls periodic reconciliation.
type Watcher interface {
	// WatchOn reconciles studyID immediately and then on every interval
	// until WatchOff or Close. onResult, if set, receives every outcome.
	WatchOn(ctx context.Context, studyID string, policy selection.Policy, onResult func(*reconciler.Result, error)) error

	// WatchOff stops watching and waits for an in-flight run to finish
	WatchOff() error
}

// WatchOn implements Watcher.
func (c *client) WatchOn(ctx context.Context, studyID string, policy selection.Policy, onResult func(*reconciler.Result, error)) error {
	// Stop any existing watch to prevent resource leaks
	if err := c.WatchOff(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.watchCancel = cancel
	c.watchDone = done
	c.mu.Unlock()

	logger := logging.FromContext(ctx).With().Str("study_id", studyID).Logger()
	interval := c.options.watchInterval

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			result, err := c.Reconcile(ctx, studyID, policy)
			if onResult != nil {
				onResult(result, err)
			}
			if err != nil {
				// Exit once the watch itself is canceled
				if ctx.Err() != nil {
					return
				}
				logger.Error().Err(err).Msg("Watched reconciliation failed")
			} else {
				logger.Info().Str("summary", result.Summary()).Msg("Watched reconciliation finished")
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Info().Dur("interval", interval).Msg("Watching study")
	return nil
}

// WatchOff implements Watcher.
func (c *client) WatchOff() error {
	c.mu.Lock()
	cancel, done := c.watchCancel, c.watchDone
	c.watchCancel, c.watchDone = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
