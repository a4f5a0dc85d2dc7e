package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// StartSessionCleanupWorker starts a background worker that removes expired sessions.
// Returns a cleanup function to stop the worker gracefully
func StartSessionCleanupWorker(ctx context.Context, sessions SessionService, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	purge := func() {
		removed, err := sessions.PurgeExpired(ctx)
		if err != nil {
			log.WithError(err).Error("Error purging expired sessions")
			return
		}
		if removed > 0 {
			log.WithField("removed", removed).Info("Purged expired sessions")
		}
	}

	go func() {
		log.WithField("interval", interval).Info("Session cleanup worker started")

		// Run immediately on startup
		purge()

		for {
			select {
			case <-ctx.Done():
				log.Info("Session cleanup worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Session cleanup worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				purge()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}
