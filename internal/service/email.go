package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"selfstore-backend/internal/domain"
)

// sendgridEmailService sends billing notices to the facility operations
// inbox. Customer contact details live in the capture service, not here.
type sendgridEmailService struct {
	apiKey    string
	fromEmail string
	fromName  string
	opsEmail  string
}

func NewSendGridEmailService(apiKey, fromEmail, fromName, opsEmail string) EmailService {
	return &sendgridEmailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		opsEmail:  opsEmail,
	}
}

func (s *sendgridEmailService) send(subject, plainText string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail("Operations", s.opsEmail)

	message := mail.NewSingleEmail(from, subject, recipient, plainText, "")

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (s *sendgridEmailService) SendInvoiceIssuedNotice(_ context.Context, invoice *domain.Invoice) error {
	subject := fmt.Sprintf("Invoice %s issued", invoice.InvoiceNumber)
	body := fmt.Sprintf(
		"Invoice %s was issued for rental %d.\n\nPeriod: %s to %s\nAmount due: $%.2f\nDue date: %s\n",
		invoice.InvoiceNumber, invoice.RentalID,
		invoice.PeriodStart.Format("2006-01-02"), invoice.PeriodEnd.Format("2006-01-02"),
		float64(invoice.AmountDueCents)/100,
		invoice.DueDate.Format("2006-01-02"),
	)
	return s.send(subject, body)
}

func (s *sendgridEmailService) SendOverdueNotice(_ context.Context, invoice *domain.Invoice) error {
	subject := fmt.Sprintf("Invoice %s is overdue", invoice.InvoiceNumber)
	body := fmt.Sprintf(
		"Invoice %s for rental %d is overdue.\n\nDue date: %s\nOutstanding: $%.2f\n",
		invoice.InvoiceNumber, invoice.RentalID,
		invoice.DueDate.Format("2006-01-02"),
		float64(invoice.OutstandingCents())/100,
	)
	return s.send(subject, body)
}

func (s *sendgridEmailService) SendOverdueDigest(_ context.Context, invoices []domain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	var b strings.Builder
	var total int64
	for i := range invoices {
		inv := &invoices[i]
		fmt.Fprintf(&b, "  %s  rental %d  due %s  outstanding $%.2f\n",
			inv.InvoiceNumber, inv.RentalID, inv.DueDate.Format("2006-01-02"),
			float64(inv.OutstandingCents())/100)
		total += inv.OutstandingCents()
	}
	subject := fmt.Sprintf("%d overdue invoices, $%.2f outstanding", len(invoices), float64(total)/100)
	return s.send(subject, "Overdue invoices:\n\n"+b.String())
}

// noopEmailService is used when no SendGrid key is configured, in
// development and in tests.
type noopEmailService struct{}

func NewNoopEmailService() EmailService { return noopEmailService{} }

func (noopEmailService) SendInvoiceIssuedNotice(context.Context, *domain.Invoice) error { return nil }
func (noopEmailService) SendOverdueNotice(context.Context, *domain.Invoice) error       { return nil }
func (noopEmailService) SendOverdueDigest(context.Context, []domain.Invoice) error      { return nil }
