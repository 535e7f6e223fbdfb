// Package momo is the mobile-money payment collaborator. The request/response
// contract is the only coupling surface: callers submit a request-to-pay,
// receive a reference, and poll the reference once after a fixed delay.
package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
)

type PaymentRequest struct {
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Phone      string  `json:"phone"`
	ExternalID string  `json:"external_id"`
	Message    string  `json:"message"`
}

type PaymentResult struct {
	ReferenceID string  `json:"reference_id"`
	Status      Status  `json:"status"`
	Amount      float64 `json:"amount,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// Gateway abstracts the provider API so tests substitute a deterministic
// fake instead of a randomized simulation.
type Gateway interface {
	RequestToPay(ctx context.Context, req PaymentRequest) (*PaymentResult, error)
	GetStatus(ctx context.Context, referenceID string) (*PaymentResult, error)
}

// Client talks to a MoMo collection API (sandbox or production).
type Client struct {
	baseURL         string
	subscriptionKey string
	targetEnv       string
	httpClient      *http.Client
}

type Config struct {
	BaseURL         string
	SubscriptionKey string
	TargetEnv       string
	Timeout         time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:         cfg.BaseURL,
		subscriptionKey: cfg.SubscriptionKey,
		targetEnv:       cfg.TargetEnv,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) RequestToPay(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	referenceID := uuid.New().String()

	body, err := json.Marshal(map[string]interface{}{
		"amount":     fmt.Sprintf("%.2f", req.Amount),
		"currency":   req.Currency,
		"externalId": req.ExternalID,
		"payer": map[string]string{
			"partyIdType": "MSISDN",
			"partyId":     req.Phone,
		},
		"payerMessage": req.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/collection/v1_0/requesttopay", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Reference-Id", referenceID)
	httpReq.Header.Set("X-Target-Environment", c.targetEnv)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to pay failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("request to pay rejected: status %d", resp.StatusCode)
	}

	return &PaymentResult{ReferenceID: referenceID, Status: StatusPending}, nil
}

func (c *Client) GetStatus(ctx context.Context, referenceID string) (*PaymentResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/collection/v1_0/requesttopay/"+referenceID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Target-Environment", c.targetEnv)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment status check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment status check rejected: status %d", resp.StatusCode)
	}

	var payload struct {
		Status   Status `json:"status"`
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode payment status: %w", err)
	}

	result := &PaymentResult{
		ReferenceID: referenceID,
		Status:      payload.Status,
		Currency:    payload.Currency,
		Reason:      payload.Reason,
	}
	fmt.Sscanf(payload.Amount, "%f", &result.Amount)
	return result, nil
}
