package scheduler

import (
	"log"

	"github.com/robfig/cron/v3"

	"rentledger-backend/internal/config"
	"rentledger-backend/internal/jobs"
	"rentledger-backend/internal/timeutil"
)

// Scheduler manages cron job scheduling. All specs are interpreted in IST,
// matching the due-date arithmetic of the ledger itself.
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

func NewScheduler(jobRunner *jobs.JobRunner, cfg *config.Config) *Scheduler {
	c := cron.New(cron.WithLocation(timeutil.IST))

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs(cfg)
	return s
}

func (s *Scheduler) registerJobs(cfg *config.Config) {
	add := func(name, spec string, job func()) {
		if _, err := s.cron.AddFunc(spec, job); err != nil {
			log.Printf("[Scheduler] Failed to register %s (%q): %v", name, spec, err)
			return
		}
		log.Printf("[Scheduler] Registered %s at %q IST", name, spec)
	}

	add("overdue sweep", cfg.Scheduler.OverdueSweep, s.jobs.SweepOverduePayments)
	add("monthly generation", cfg.Scheduler.MonthlyGeneration, s.jobs.GenerateMonthlyPayments)
	add("payment reminders", cfg.Scheduler.PaymentReminders, s.jobs.SendPaymentReminders)
	add("overdue notices", cfg.Scheduler.PaymentReminders, s.jobs.SendOverdueNotices)
	add("payment reconcile", cfg.Scheduler.ReconcilePayments, s.jobs.ReconcileOnlinePayments)
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[Scheduler] Started with %d job(s)", len(s.cron.Entries()))
}

// Stop waits for any running job before returning
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Printf("[Scheduler] Stopped")
}
