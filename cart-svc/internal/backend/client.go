// Package backend talks to the storefront REST backend that owns users,
// server-side carts and orders.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"liefrik/cart-svc/internal/domain"
)

const (
	DefaultTimeout = 10 * time.Second
	// MaxResponseBytes bounds how much of a backend response is read.
	MaxResponseBytes = 1 << 20
)

var ErrResponseTooLarge = errors.New("backend response too large")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend responded with status %d", e.Code)
	}
	return fmt.Sprintf("backend responded with status %d: %s", e.Code, e.Body)
}

type Client struct {
	config Config
	client HTTPClient
}

func NewClient(config Config, client HTTPClient) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{config: config, client: client}
}

func (c *Client) AddToCart(ctx context.Context, token string, item domain.ServerCartItem) error {
	_, err := c.do(ctx, http.MethodPost, "/cart/add", token, item)
	return err
}

func (c *Client) GetCart(ctx context.Context, token, userID string) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, "/cart/"+url.PathEscape(userID), token, nil)
	if err != nil {
		return nil, err
	}
	return asJSON(body), nil
}

func (c *Client) ChoosePayment(ctx context.Context, token, userID string, method domain.PaymentMethod) error {
	req := map[string]string{
		"userId":        userID,
		"paymentMethod": string(method),
	}
	_, err := c.do(ctx, http.MethodPost, "/cart/choose-payment", token, req)
	return err
}

// Checkout posts the order. A non-2xx answer is reported as *StatusError,
// anything else is a transport failure.
func (c *Client) Checkout(ctx context.Context, token string, payload domain.OrderPayload) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodPost, "/cart/checkout", token, payload)
	if err != nil {
		return nil, err
	}
	return asJSON(body), nil
}

func (c *Client) do(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if len(body) > MaxResponseBytes {
		return nil, fmt.Errorf("read %s %s: %w", method, path, ErrResponseTooLarge)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func asJSON(body []byte) json.RawMessage {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		return nil
	}
	return json.RawMessage(body)
}
