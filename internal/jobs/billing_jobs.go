package jobs

import (
	"context"
	"time"

	"selfstore-backend/internal/logger"
)

// RunBillingCycle advances every active rental: generates and sends the
// invoices that came due, marks unpaid ones overdue and expires rentals
// whose term ended.
func (jr *JobRunner) RunBillingCycle() {
	jr.runWithRecovery("RunBillingCycle", func() {
		ctx := context.Background()

		stats, err := jr.services.Billing.RunBillingCycle(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("Billing cycle failed", "error", err)
			return
		}

		logger.Info("Billing cycle completed",
			"rentals", stats.RentalsProcessed,
			"generated", stats.InvoicesGenerated,
			"sent", stats.InvoicesSent,
			"overdue", stats.InvoicesOverdue,
			"expired", stats.RentalsExpired,
			"errors", stats.Errors)
	})
}
