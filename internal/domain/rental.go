package domain

import "time"

type RentalStatus string

const (
	RentalStatusDraft            RentalStatus = "DRAFT"
	RentalStatusPendingSignature RentalStatus = "PENDING_SIGNATURE"
	RentalStatusActive           RentalStatus = "ACTIVE"
	RentalStatusTerminated       RentalStatus = "TERMINATED"
	RentalStatusExpired          RentalStatus = "EXPIRED"
)

// Rental is a customer-unit storage agreement. Money is in cents, the late
// fee rate in basis points of the monthly rate per overdue period.
type Rental struct {
	ID                    int64        `json:"id"`
	OwnerID               int64        `json:"owner_id"`
	FacilityID            int64        `json:"facility_id"`
	CustomerID            int64        `json:"customer_id"`
	UnitID                int64        `json:"unit_id"`
	StartDate             time.Time    `json:"start_date"`
	EndDate               *time.Time   `json:"end_date,omitempty"` // nil = month-to-month
	MonthlyRateCents      int64        `json:"monthly_rate_cents"`
	SecurityDepositCents  int64        `json:"security_deposit_cents"`
	LateFeeBps            int32        `json:"late_fee_bps"`
	AutoRenew             bool         `json:"auto_renew"`
	InsuranceRequired     bool         `json:"insurance_required"`
	InsuranceProvider     string       `json:"insurance_provider,omitempty"`
	InsurancePolicyNumber string       `json:"insurance_policy_number,omitempty"`
	Status                RentalStatus `json:"status"`
	TerminatedAt          *time.Time   `json:"terminated_at,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// rentalTransitions is the full set of legal lifecycle moves. Terminated and
// expired have no outgoing edges; rentals are never deleted by business logic.
var rentalTransitions = map[RentalStatus][]RentalStatus{
	RentalStatusDraft:            {RentalStatusPendingSignature},
	RentalStatusPendingSignature: {RentalStatusActive},
	RentalStatusActive:           {RentalStatusTerminated, RentalStatusExpired},
	RentalStatusTerminated:       {},
	RentalStatusExpired:          {},
}

// NewRental validates field invariants at the creation boundary and returns
// a rental in DRAFT status.
func NewRental(ownerID, facilityID, customerID, unitID int64, startDate time.Time, endDate *time.Time, monthlyRateCents, securityDepositCents int64, lateFeeBps int32, autoRenew, insuranceRequired bool, insuranceProvider, insurancePolicyNumber string) (*Rental, error) {
	if ownerID <= 0 {
		return nil, NewValidationError("owner_id", "must be set")
	}
	if customerID <= 0 {
		return nil, NewValidationError("customer_id", "must be set")
	}
	if unitID <= 0 {
		return nil, NewValidationError("unit_id", "must be set")
	}
	if monthlyRateCents <= 0 {
		return nil, NewValidationError("monthly_rate_cents", "must be positive")
	}
	if securityDepositCents < 0 {
		return nil, NewValidationError("security_deposit_cents", "must not be negative")
	}
	if lateFeeBps < 0 {
		return nil, NewValidationError("late_fee_bps", "must not be negative")
	}
	if endDate != nil && endDate.Before(startDate) {
		return nil, NewValidationError("end_date", "must not precede start_date")
	}

	return &Rental{
		OwnerID:               ownerID,
		FacilityID:            facilityID,
		CustomerID:            customerID,
		UnitID:                unitID,
		StartDate:             startDate,
		EndDate:               endDate,
		MonthlyRateCents:      monthlyRateCents,
		SecurityDepositCents:  securityDepositCents,
		LateFeeBps:            lateFeeBps,
		AutoRenew:             autoRenew,
		InsuranceRequired:     insuranceRequired,
		InsuranceProvider:     insuranceProvider,
		InsurancePolicyNumber: insurancePolicyNumber,
		Status:                RentalStatusDraft,
	}, nil
}

// CanTransition reports whether moving to target is a legal lifecycle edge.
func (r *Rental) CanTransition(target RentalStatus) bool {
	for _, next := range rentalTransitions[r.Status] {
		if next == target {
			return true
		}
	}
	return false
}

// Transition moves the rental to target or fails with
// InvalidStateTransitionError naming current and attempted state.
func (r *Rental) Transition(target RentalStatus) error {
	if !r.CanTransition(target) {
		return &InvalidStateTransitionError{
			Entity:  "rental",
			ID:      r.ID,
			Current: string(r.Status),
			Target:  string(target),
		}
	}
	r.Status = target
	return nil
}

// ReadyForSignature checks the mandatory fields the draft -> pending_signature
// transition requires. Insurance provider and policy number are mandatory
// only when insurance is required.
func (r *Rental) ReadyForSignature() error {
	if r.CustomerID <= 0 {
		return NewValidationError("customer_id", "must be set before signature")
	}
	if r.UnitID <= 0 {
		return NewValidationError("unit_id", "must be set before signature")
	}
	if r.MonthlyRateCents <= 0 {
		return NewValidationError("monthly_rate_cents", "must be positive")
	}
	if r.InsuranceRequired {
		if r.InsuranceProvider == "" {
			return NewValidationError("insurance_provider", "required when insurance_required is true")
		}
		if r.InsurancePolicyNumber == "" {
			return NewValidationError("insurance_policy_number", "required when insurance_required is true")
		}
	}
	return nil
}

// IsTerminal reports whether the rental reached a terminal lifecycle state.
func (r *Rental) IsTerminal() bool {
	return r.Status == RentalStatusTerminated || r.Status == RentalStatusExpired
}
