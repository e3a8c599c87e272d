package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func validRental(t *testing.T) *Rental {
	t.Helper()
	rental, err := NewRental(1, 2, 3, 4, day(2024, time.January, 1), nil, 10000, 5000, 500, false, false, "", "")
	assert.NoError(t, err)
	return rental
}

func TestNewRental(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		rental := validRental(t)
		assert.Equal(t, RentalStatusDraft, rental.Status)
	})

	t.Run("RejectsZeroRate", func(t *testing.T) {
		_, err := NewRental(1, 2, 3, 4, day(2024, time.January, 1), nil, 0, 0, 0, false, false, "", "")
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "monthly_rate_cents", validationErr.Field)
	})

	t.Run("RejectsEndBeforeStart", func(t *testing.T) {
		end := day(2023, time.December, 1)
		_, err := NewRental(1, 2, 3, 4, day(2024, time.January, 1), &end, 10000, 0, 0, false, false, "", "")
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "end_date", validationErr.Field)
	})

	t.Run("RejectsNegativeDeposit", func(t *testing.T) {
		_, err := NewRental(1, 2, 3, 4, day(2024, time.January, 1), nil, 10000, -1, 0, false, false, "", "")
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestRentalTransitions(t *testing.T) {
	t.Run("FullLifecycle", func(t *testing.T) {
		rental := validRental(t)
		assert.NoError(t, rental.Transition(RentalStatusPendingSignature))
		assert.NoError(t, rental.Transition(RentalStatusActive))
		assert.NoError(t, rental.Transition(RentalStatusTerminated))
		assert.True(t, rental.IsTerminal())
	})

	t.Run("DraftCannotActivateDirectly", func(t *testing.T) {
		rental := validRental(t)
		err := rental.Transition(RentalStatusActive)
		var transitionErr *InvalidStateTransitionError
		assert.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, RentalStatusDraft, rental.Status)
	})

	t.Run("TerminalStatesHaveNoExits", func(t *testing.T) {
		rental := validRental(t)
		rental.Status = RentalStatusExpired
		for _, target := range []RentalStatus{RentalStatusDraft, RentalStatusPendingSignature, RentalStatusActive, RentalStatusTerminated} {
			assert.False(t, rental.CanTransition(target), "expired rental must not move to %s", target)
		}
	})
}

func TestRentalReadyForSignature(t *testing.T) {
	t.Run("InsuranceOptional", func(t *testing.T) {
		rental := validRental(t)
		assert.NoError(t, rental.ReadyForSignature())
	})

	t.Run("InsuranceFieldsMandatoryWhenRequired", func(t *testing.T) {
		rental := validRental(t)
		rental.InsuranceRequired = true
		var validationErr *ValidationError
		assert.ErrorAs(t, rental.ReadyForSignature(), &validationErr)

		rental.InsuranceProvider = "Acme Mutual"
		assert.ErrorAs(t, rental.ReadyForSignature(), &validationErr)
		assert.Equal(t, "insurance_policy_number", validationErr.Field)

		rental.InsurancePolicyNumber = "POL-123"
		assert.NoError(t, rental.ReadyForSignature())
	})
}
