package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"selfstore-backend/internal/domain"
)

// NewSignatureService selects the provider by name. "mock" confirms every
// agreement and is the development default; "http" calls the external
// signature provider with a bounded deadline.
func NewSignatureService(provider, endpoint string, timeout time.Duration) (SignatureService, error) {
	switch provider {
	case "mock", "":
		return &mockSignatureService{}, nil
	case "http":
		return &httpSignatureService{
			endpoint: endpoint,
			timeout:  timeout,
			client:   &http.Client{Timeout: timeout},
		}, nil
	default:
		return nil, fmt.Errorf("unknown signature provider: %s", provider)
	}
}

type mockSignatureService struct{}

func (s *mockSignatureService) ConfirmSignature(_ context.Context, _ *domain.Rental) (bool, error) {
	return true, nil
}

type httpSignatureService struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

type signatureRequest struct {
	RentalID   int64 `json:"rental_id"`
	CustomerID int64 `json:"customer_id"`
	UnitID     int64 `json:"unit_id"`
}

type signatureResponse struct {
	Signed bool `json:"signed"`
}

func (s *httpSignatureService) ConfirmSignature(ctx context.Context, rental *domain.Rental) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(signatureRequest{
		RentalID:   rental.ID,
		CustomerID: rental.CustomerID,
		UnitID:     rental.UnitID,
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return false, domain.ErrCollaboratorTimeout
		}
		return false, fmt.Errorf("signature provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("signature provider returned status %d", resp.StatusCode)
	}

	var result signatureResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("signature provider response malformed: %w", err)
	}
	return result.Signed, nil
}

func isClientTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
