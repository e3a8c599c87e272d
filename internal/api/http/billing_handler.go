package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"selfstore-backend/internal/domain"
	"selfstore-backend/internal/service"
)

type BillingHandler struct {
	billingSvc service.BillingService
	invoiceSvc service.InvoiceService
	validate   *validator.Validate
}

func NewBillingHandler(billingSvc service.BillingService, invoiceSvc service.InvoiceService) *BillingHandler {
	return &BillingHandler{
		billingSvc: billingSvc,
		invoiceSvc: invoiceSvc,
		validate:   validator.New(),
	}
}

// paymentEventRequest is the webhook payload from the payment capture
// service. The id is the capture service's payment id and doubles as the
// idempotency key; events without one get a fresh id and skip dedup.
type paymentEventRequest struct {
	ID              string  `json:"id"`
	OwnerID         int64   `json:"owner_id" validate:"required,gt=0"`
	InvoiceID       int64   `json:"invoice_id" validate:"required,gt=0"`
	CustomerID      int64   `json:"customer_id"`
	AmountCents     int64   `json:"amount_cents" validate:"required,gt=0"`
	PaymentMethodID *string `json:"payment_method_id,omitempty"`
	TransactionID   string  `json:"transaction_id"`
	Status          string  `json:"status" validate:"required,oneof=PENDING COMPLETED FAILED REFUNDED"`
	ProcessedAt     string  `json:"processed_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type runBillingRequest struct {
	AsOf string `json:"as_of,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (h *BillingHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req paymentEventRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	// The body owner must match the token identity; a capture-service token
	// is scoped to one owner like any other caller.
	if tokenOwner, ok := OwnerFromContext(r.Context()); !ok || tokenOwner != req.OwnerID {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "owner does not match the authenticated identity"})
		return
	}

	var processedAt time.Time
	if req.ProcessedAt != "" {
		processedAt, _ = time.Parse(time.RFC3339, req.ProcessedAt)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	payment := &domain.Payment{
		ID:              req.ID,
		OwnerID:         req.OwnerID,
		InvoiceID:       req.InvoiceID,
		CustomerID:      req.CustomerID,
		AmountCents:     req.AmountCents,
		PaymentMethodID: req.PaymentMethodID,
		TransactionID:   req.TransactionID,
		Status:          domain.PaymentStatus(req.Status),
		ProcessedAt:     processedAt,
	}

	result, err := h.billingSvc.OnPaymentEvent(r.Context(), payment)
	if err != nil {
		writeError(w, err)
		return
	}
	// Duplicates answer 200 so the capture service stops re-delivering.
	writeJSON(w, http.StatusOK, result)
}

func (h *BillingHandler) RunBillingCycle(w http.ResponseWriter, r *http.Request) {
	var req runBillingRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}
	asOf := time.Now().UTC()
	if req.AsOf != "" {
		asOf, _ = time.Parse("2006-01-02", req.AsOf)
	}

	stats, err := h.billingSvc.RunBillingCycle(r.Context(), asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *BillingHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	status := r.URL.Query().Get("status")
	from, to := queryDateRange(r)

	invoices, err := h.billingSvc.ListInvoices(r.Context(), ownerID, status, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *BillingHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	invoiceID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	invoice, err := h.invoiceSvc.GetInvoice(r.Context(), ownerID, invoiceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (h *BillingHandler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	invoiceID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	invoice, err := h.invoiceSvc.Cancel(r.Context(), ownerID, invoiceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (h *BillingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	from, to := queryDateRange(r)

	payments, err := h.billingSvc.ListPayments(r.Context(), ownerID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *BillingHandler) ListLedgerEntries(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	from, to := queryDateRange(r)

	scope := domain.LedgerScope{
		FacilityID: queryOptionalID(r, "facility_id"),
		CustomerID: queryOptionalID(r, "customer_id"),
		RentalID:   queryOptionalID(r, "rental_id"),
	}

	entries, err := h.billingSvc.ListLedgerEntries(r.Context(), ownerID, scope, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func queryDateRange(r *http.Request) (from, to time.Time) {
	if val := r.URL.Query().Get("from"); val != "" {
		from, _ = time.Parse("2006-01-02", val)
	}
	if val := r.URL.Query().Get("to"); val != "" {
		to, _ = time.Parse("2006-01-02", val)
	}
	return from, to
}

func queryOptionalID(r *http.Request, name string) *int64 {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}
