package method

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ibrahimkeyboad/payrun/internal/core/ratelimit"
)

// APIVersion is sent on every request as the Method-Version header.
const APIVersion = "2024-04-04"

// Client talks to the Method API. Every call, reads included, goes through
// the shared rate limiter.
type Client struct {
	baseURL string
	apiKey  string
	limiter *ratelimit.Limiter
	http    *http.Client
}

func NewClient(baseURL, apiKey string, limiter *ratelimit.Limiter) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: limiter,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from Method. The body is kept verbatim so
// it can land in the payment's error field.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("method: status %d: %s", e.Status, e.Body)
}

type IndividualProfile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	DOB       string `json:"dob"` // YYYY-MM-DD
}

type CorporationProfile struct {
	Name   string   `json:"name"`
	DBA    string   `json:"dba"`
	EIN    string   `json:"ein"`
	Owners []string `json:"owners"` // must be present, may be empty
}

type AddressPayload struct {
	Line1 string  `json:"line1"`
	Line2 *string `json:"line2"`
	City  string  `json:"city"`
	State string  `json:"state"`
	Zip   string  `json:"zip"`
}

type EntityRequest struct {
	Type        string              `json:"type"`
	Individual  *IndividualProfile  `json:"individual,omitempty"`
	Corporation *CorporationProfile `json:"corporation,omitempty"`
	Address     *AddressPayload     `json:"address,omitempty"`
}

type ACHPayload struct {
	Routing string `json:"routing"`
	Number  string `json:"number"`
	Type    string `json:"type"` // checking / savings
}

type LiabilityPayload struct {
	MerchantID    string `json:"mch_id"`
	AccountNumber string `json:"account_number"`
}

type AccountRequest struct {
	HolderID  string            `json:"holder_id"`
	ACH       *ACHPayload       `json:"ach,omitempty"`
	Liability *LiabilityPayload `json:"liability,omitempty"`
}

type PaymentRequest struct {
	Amount      int64  `json:"amount"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Description string `json:"description"`
}

// envelope is Method's standard response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

type resource struct {
	ID string `json:"id"`
}

// CreateEntity provisions an individual or corporation identity and returns
// its Method id.
func (c *Client) CreateEntity(ctx context.Context, req EntityRequest) (string, error) {
	var res resource
	if err := c.do(ctx, http.MethodPost, "/entities", req, &res); err != nil {
		return "", fmt.Errorf("create entity: %w", err)
	}
	return res.ID, nil
}

// CreateAccount provisions an ACH or liability account under an entity.
func (c *Client) CreateAccount(ctx context.Context, req AccountRequest) (string, error) {
	var res resource
	if err := c.do(ctx, http.MethodPost, "/accounts", req, &res); err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	return res.ID, nil
}

// VerifyAccount opens an auto_verify verification session so the account can
// send payments.
func (c *Client) VerifyAccount(ctx context.Context, accountID string) error {
	body := map[string]string{"type": "auto_verify"}
	path := fmt.Sprintf("/accounts/%s/verification_sessions", accountID)
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("verify account %s: %w", accountID, err)
	}
	return nil
}

// FindMerchant looks up the Method merchant id for a Plaid provider id.
// The first match wins.
func (c *Client) FindMerchant(ctx context.Context, plaidID string) (string, error) {
	path := "/merchants?provider_id.plaid=" + url.QueryEscape(plaidID)
	var merchants []resource
	if err := c.do(ctx, http.MethodGet, path, nil, &merchants); err != nil {
		return "", fmt.Errorf("find merchant: %w", err)
	}
	if len(merchants) == 0 {
		return "", fmt.Errorf("find merchant: no merchant for plaid id %q", plaidID)
	}
	return merchants[0].ID, nil
}

// CreatePayment submits a transfer and returns the Method payment id.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (string, error) {
	var res resource
	if err := c.do(ctx, http.MethodPost, "/payments", req, &res); err != nil {
		return "", fmt.Errorf("create payment: %w", err)
	}
	return res.ID, nil
}

// do performs one rate-limited request and decodes the data envelope into out.
func (c *Client) do(ctx context.Context, httpMethod, path string, body, out any) error {
	return c.limiter.Do(ctx, func() error {
		var reqBody io.Reader
		if body != nil {
			jsonData, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reqBody = bytes.NewBuffer(jsonData)
		}

		req, err := http.NewRequestWithContext(ctx, httpMethod, c.baseURL+path, reqBody)
		if err != nil {
			return err
		}
		req.Header.Set("Method-Version", APIVersion)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
		}
		if out == nil {
			return nil
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
		return nil
	})
}
