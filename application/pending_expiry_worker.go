package application

import (
	"context"
	"fmt"
	"time"

	"warden/domain/interfaces"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

// PendingExpiryWorker periodically drops pending registrations older than a TTL
type PendingExpiryWorker struct {
	registration interfaces.RegistrationService
	ttl          time.Duration
	interval     time.Duration
	now          func() time.Time
}

// NewPendingExpiryWorker creates a new pending registration expiry worker
func NewPendingExpiryWorker(registration interfaces.RegistrationService, ttl, interval time.Duration) *PendingExpiryWorker {
	return &PendingExpiryWorker{
		registration: registration,
		ttl:          ttl,
		interval:     interval,
		now:          time.Now,
	}
}

// Start schedules the sweep and returns a cleanup function that stops it.
// The first sweep runs immediately.
func (w *PendingExpiryWorker) Start(ctx context.Context) (func(), error) {
	if w.ttl <= 0 || w.interval <= 0 {
		log.Info("Pending registration expiry disabled")
		return func() {}, nil
	}

	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(w.interval).SingletonMode().Do(func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.RunOnce(ctx); err != nil {
			log.Errorf("Error expiring pending registrations: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule pending registration expiry: %w", err)
	}

	scheduler.StartAsync()
	log.WithFields(log.Fields{
		"ttl":      w.ttl,
		"interval": w.interval,
	}).Info("Pending registration expiry worker started")

	return scheduler.Stop, nil
}

// RunOnce performs a single sweep
func (w *PendingExpiryWorker) RunOnce(ctx context.Context) (int64, error) {
	cutoff := w.now().UTC().Add(-w.ttl)

	removed, err := w.registration.ExpirePendingRegistrations(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"removed": removed,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("Completed pending registration expiry")
	return removed, nil
}
