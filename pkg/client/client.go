// Package client talks to a securepay server: it obtains bearer tokens,
// validates card fields, seals the payment payload for the server's
// encryption key and submits it. The encryption public key is supplied by
// the caller.
package client

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"securepay/pkg/cardfield"
	"securepay/pkg/envelope"
)

const msgDecryptFailedPrefix = "Failed to decrypt payload: "

type Client struct {
	BaseURL    string
	ClientID   string
	HTTPClient *http.Client
	Tokens     *TokenCache

	clock      func() time.Time
	encryptKey *rsa.PublicKey
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = client
	}
}

func WithTokenCache(cache *TokenCache) Option {
	return func(c *Client) {
		c.Tokens = cache
	}
}

// WithEncryptionKey sets the public key payments are sealed for.
func WithEncryptionKey(pub *rsa.PublicKey) Option {
	return func(c *Client) {
		c.encryptKey = pub
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func NewClient(baseURL, clientID string, opts ...Option) *Client {
	client := &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		ClientID: clientID,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.Tokens == nil {
		client.Tokens = NewTokenCache(client.clock)
	}
	return client
}

// Payment is what the payment form collects.
type Payment struct {
	Amount         float64
	CardNumber     string
	ExpirationDate string
	CVV            string
	PostalCode     string
}

type Receipt struct {
	TransactionID string
	Amount        *float64
	ClientID      string
	Timestamp     time.Time
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("securepay: status %d: %s", e.Status, e.Message)
}

func (e *APIError) unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// retryWithFreshToken reports whether a new token can change the outcome. A
// payload the server could not decrypt fails the same way under any token.
func (e *APIError) retryWithFreshToken() bool {
	return e.unauthorized() && !strings.HasPrefix(e.Message, msgDecryptFailedPrefix)
}

type authResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
	Error     string `json:"error"`
}

type paymentResponse struct {
	Success       bool     `json:"success"`
	TransactionID string   `json:"transactionId"`
	Amount        *float64 `json:"amount"`
	ClientID      string   `json:"clientId"`
	Timestamp     string   `json:"timestamp"`
	Error         string   `json:"error"`
}

// Token returns the cached bearer token or requests a new one.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c == nil {
		return "", fmt.Errorf("securepay client is nil")
	}
	if token, ok := c.Tokens.Get(); ok {
		return token, nil
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return "", fmt.Errorf("client id is required")
	}

	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/auth", "", map[string]any{"clientId": c.ClientID}, &out); err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("request token: empty token in response")
	}
	c.Tokens.Set(out.Token, time.Duration(out.ExpiresIn)*time.Second)
	return out.Token, nil
}

// SubmitPayment validates the card fields, seals them with the amount and
// posts the envelope. Any 401 drops the cached token; unless the payload
// itself was rejected, the request is retried once with a fresh one. Field
// errors come back as cardfield.FieldErrors.
func (c *Client) SubmitPayment(ctx context.Context, p Payment) (*Receipt, error) {
	if c == nil {
		return nil, fmt.Errorf("securepay client is nil")
	}
	fields := cardfield.Format(cardfield.Fields{
		CardNumber:     p.CardNumber,
		ExpirationDate: p.ExpirationDate,
		CVV:            p.CVV,
		PostalCode:     p.PostalCode,
	})
	if errs := cardfield.Validate(fields, c.clock()); errs != nil {
		return nil, fmt.Errorf("validate payment: %w", errs)
	}

	if c.encryptKey == nil {
		return nil, fmt.Errorf("encryption public key is required")
	}
	sealed, err := envelope.Encrypt(map[string]any{
		"amount":         p.Amount,
		"cardNumber":     strings.ReplaceAll(fields.CardNumber, " ", ""),
		"expirationDate": fields.ExpirationDate,
		"cvv":            fields.CVV,
		"postalCode":     fields.PostalCode,
	}, c.encryptKey)
	if err != nil {
		return nil, fmt.Errorf("seal payment: %w", err)
	}

	var receipt *Receipt
	submit := func() error {
		token, err := c.Token(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		receipt, err = c.postPayment(ctx, token, sealed)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.unauthorized() {
			c.Tokens.Invalidate()
			if apiErr.retryWithFreshToken() {
				return err
			}
		}
		return backoff.Permanent(err)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1), ctx)
	if err := backoff.Retry(submit, policy); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (c *Client) postPayment(ctx context.Context, token, sealed string) (*Receipt, error) {
	var out paymentResponse
	if err := c.do(ctx, http.MethodPost, "/payment", token, map[string]any{"payload_jwe": sealed}, &out); err != nil {
		return nil, fmt.Errorf("submit payment: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, out.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("submit payment: timestamp: %w", err)
	}
	return &Receipt{
		TransactionID: out.TransactionID,
		Amount:        out.Amount,
		ClientID:      out.ClientID,
		Timestamp:     ts,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	if c.BaseURL == "" {
		return fmt.Errorf("securepay base URL is required")
	}
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(bodyBytes, &failure) != nil || failure.Error == "" {
			failure.Error = strings.TrimSpace(string(bodyBytes))
		}
		return &APIError{Status: resp.StatusCode, Message: failure.Error}
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
