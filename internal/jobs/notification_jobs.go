package jobs

import (
	"context"
	"log"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/timeutil"
)

// overdueNoticeDays is the escalation ladder: a notice goes out when an
// obligation has been late exactly this many days, not every morning.
var overdueNoticeDays = map[int]bool{1: true, 7: true, 14: true, 30: true}

// SendPaymentReminders messages tenants whose rent falls due soon. Each
// obligation is reminded twice: once at the configured lead time and once on
// the due day itself.
func (jr *JobRunner) SendPaymentReminders() {
	jr.runWithRecovery("payment_reminders", func(ctx context.Context) error {
		daysBefore := jr.settings.GetIntValue(ctx, models.SettingReminderDaysBefore, 3)

		upcoming, err := jr.payments.GetUpcomingPayments(ctx, daysBefore)
		if err != nil {
			return err
		}

		now := timeutil.Now()
		sent := 0
		for _, payment := range upcoming {
			daysLeft := timeutil.DaysUntil(now, payment.DueDate)
			if daysLeft != daysBefore && daysLeft != 0 {
				continue
			}

			tenant, err := jr.store.Tenants.GetByID(ctx, payment.TenantID)
			if err != nil {
				log.Printf("[Scheduler] Tenant %s lookup failed for reminder: %v", payment.TenantID, err)
				continue
			}
			jr.notifications.SendPaymentReminder(ctx, tenant, payment)
			sent++
		}

		if sent > 0 {
			log.Printf("[Scheduler] Sent %d payment reminder(s)", sent)
		}
		return nil
	})
}

// SendOverdueNotices messages tenants on the escalation ladder days after
// their rent became overdue
func (jr *JobRunner) SendOverdueNotices() {
	jr.runWithRecovery("overdue_notices", func(ctx context.Context) error {
		overdue, err := jr.payments.GetOverduePayments(ctx)
		if err != nil {
			return err
		}

		now := timeutil.Now()
		sent := 0
		for _, payment := range overdue {
			if !overdueNoticeDays[timeutil.DaysPastDue(now, payment.DueDate)] {
				continue
			}

			tenant, err := jr.store.Tenants.GetByID(ctx, payment.TenantID)
			if err != nil {
				log.Printf("[Scheduler] Tenant %s lookup failed for overdue notice: %v", payment.TenantID, err)
				continue
			}
			jr.notifications.SendOverdueNotice(ctx, tenant, payment)
			sent++
		}

		if sent > 0 {
			log.Printf("[Scheduler] Sent %d overdue notice(s)", sent)
		}
		return nil
	})
}
