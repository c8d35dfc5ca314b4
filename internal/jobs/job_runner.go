package jobs

import (
	"context"
	"log"
	"time"

	"rentledger-backend/internal/config"
	"rentledger-backend/internal/metrics"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/services"
)

// jobTimeout bounds a single run; the reminder job can send a message per
// tenant, so the ceiling is generous.
const jobTimeout = 10 * time.Minute

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store         *repositories.Store
	payments      *services.PaymentService
	razorpay      *services.RazorpayService
	notifications *services.NotificationService
	settings      *services.SystemSettingService
	cfg           *config.Config
}

func NewJobRunner(
	store *repositories.Store,
	payments *services.PaymentService,
	razorpay *services.RazorpayService,
	notifications *services.NotificationService,
	settings *services.SystemSettingService,
	cfg *config.Config,
) *JobRunner {
	return &JobRunner{
		store:         store,
		payments:      payments,
		razorpay:      razorpay,
		notifications: notifications,
		settings:      settings,
		cfg:           cfg,
	}
}

// runWithRecovery wraps job execution with panic recovery and timing. A
// panicking job must never take the scheduler goroutine down with it.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SchedulerJobFailures.WithLabelValues(jobName).Inc()
			log.Printf("[Scheduler] Job %s panicked: %v", jobName, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	err := jobFunc(ctx)
	metrics.SchedulerJobDuration.WithLabelValues(jobName).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SchedulerJobFailures.WithLabelValues(jobName).Inc()
		log.Printf("[Scheduler] Job %s failed: %v", jobName, err)
		return
	}
	log.Printf("[Scheduler] Job %s completed in %s", jobName, time.Since(start).Round(time.Millisecond))
}
