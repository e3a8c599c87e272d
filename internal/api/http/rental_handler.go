package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"selfstore-backend/internal/domain"
	"selfstore-backend/internal/service"
)

type RentalHandler struct {
	rentalSvc  service.RentalService
	invoiceSvc service.InvoiceService
	billingSvc service.BillingService
	validate   *validator.Validate
}

func NewRentalHandler(rentalSvc service.RentalService, invoiceSvc service.InvoiceService, billingSvc service.BillingService) *RentalHandler {
	return &RentalHandler{
		rentalSvc:  rentalSvc,
		invoiceSvc: invoiceSvc,
		billingSvc: billingSvc,
		validate:   validator.New(),
	}
}

type createRentalRequest struct {
	FacilityID            int64  `json:"facility_id" validate:"required,gt=0"`
	CustomerID            int64  `json:"customer_id" validate:"required,gt=0"`
	UnitID                int64  `json:"unit_id" validate:"required,gt=0"`
	StartDate             string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate               string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	MonthlyRateCents      int64  `json:"monthly_rate_cents" validate:"required,gt=0"`
	SecurityDepositCents  int64  `json:"security_deposit_cents" validate:"gte=0"`
	LateFeeBps            int32  `json:"late_fee_bps" validate:"gte=0"`
	AutoRenew             bool   `json:"auto_renew"`
	InsuranceRequired     bool   `json:"insurance_required"`
	InsuranceProvider     string `json:"insurance_provider,omitempty"`
	InsurancePolicyNumber string `json:"insurance_policy_number,omitempty"`
}

type terminateRentalRequest struct {
	EffectiveDate string `json:"effective_date" validate:"required,datetime=2006-01-02"`
}

type activateRentalResponse struct {
	Rental  *domain.Rental  `json:"rental"`
	Invoice *domain.Invoice `json:"first_invoice,omitempty"`
}

type terminateRentalResponse struct {
	Rental       *domain.Rental  `json:"rental"`
	FinalInvoice *domain.Invoice `json:"final_invoice,omitempty"`
}

func (h *RentalHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())

	var req createRentalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	startDate, _ := time.Parse("2006-01-02", req.StartDate)
	var endDate *time.Time
	if req.EndDate != "" {
		parsed, _ := time.Parse("2006-01-02", req.EndDate)
		endDate = &parsed
	}

	rental, err := h.rentalSvc.CreateRental(r.Context(), ownerID, service.CreateRentalInput{
		FacilityID:            req.FacilityID,
		CustomerID:            req.CustomerID,
		UnitID:                req.UnitID,
		StartDate:             startDate,
		EndDate:               endDate,
		MonthlyRateCents:      req.MonthlyRateCents,
		SecurityDepositCents:  req.SecurityDepositCents,
		LateFeeBps:            req.LateFeeBps,
		AutoRenew:             req.AutoRenew,
		InsuranceRequired:     req.InsuranceRequired,
		InsuranceProvider:     req.InsuranceProvider,
		InsurancePolicyNumber: req.InsurancePolicyNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

func (h *RentalHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	rental, err := h.rentalSvc.GetRental(r.Context(), ownerID, rentalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *RentalHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	status := r.URL.Query().Get("status")
	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "page_size", 50)

	rentals, total, err := h.rentalSvc.ListRentals(r.Context(), ownerID, status, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rentals": rentals,
		"total":   total,
		"page":    page,
	})
}

func (h *RentalHandler) SubmitForSignature(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	rental, err := h.rentalSvc.SubmitForSignature(r.Context(), ownerID, rentalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *RentalHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	rental, invoice, err := h.rentalSvc.ActivateRental(r.Context(), ownerID, rentalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activateRentalResponse{Rental: rental, Invoice: invoice})
}

func (h *RentalHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req terminateRentalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	effective, _ := time.Parse("2006-01-02", req.EffectiveDate)

	rental, final, err := h.rentalSvc.TerminateRental(r.Context(), ownerID, rentalID, effective)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, terminateRentalResponse{Rental: rental, FinalInvoice: final})
}

func (h *RentalHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	// Ownership check before listing by rental id.
	if _, err := h.rentalSvc.GetRental(r.Context(), ownerID, rentalID); err != nil {
		writeError(w, err)
		return
	}
	invoices, err := h.invoiceSvc.ListByRental(r.Context(), rentalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *RentalHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.billingSvc.Reconcile(r.Context(), ownerID, rentalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

func queryInt32(r *http.Request, name string, fallback int32) int32 {
	val := r.URL.Query().Get(name)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 32)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return int32(parsed)
}
