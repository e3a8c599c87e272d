package jobs

import (
	"context"

	"selfstore-backend/internal/logger"
)

// SendOverdueReminders mails the operations inbox a digest of every invoice
// currently overdue.
func (jr *JobRunner) SendOverdueReminders() {
	jr.runWithRecovery("SendOverdueReminders", func() {
		ctx := context.Background()

		invoices, err := jr.store.InvoiceRepository.ListOverdue(ctx)
		if err != nil {
			logger.Error("Failed to list overdue invoices", "error", err)
			return
		}
		if len(invoices) == 0 {
			logger.Info("No overdue invoices")
			return
		}

		if err := jr.services.Email.SendOverdueDigest(ctx, invoices); err != nil {
			logger.Error("Failed to send overdue digest", "count", len(invoices), "error", err)
			return
		}
		logger.Info("Overdue digest sent", "count", len(invoices))
	})
}
