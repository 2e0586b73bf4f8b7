package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"portfolio-contact/internal/domain"
)

const (
	defaultBaseURL = "https://api.resend.com"
	defaultTimeout = 10 * time.Second
	userAgent      = "portfolio-contact/1.0"
)

// sendRequest is the request shape for POST /emails.
type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// errorResponse is the error body Resend returns on non-2xx responses.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// TokenGetter loads an API token by parameter name. *paramstore.Client
// satisfies it.
type TokenGetter interface {
	GetToken(ctx context.Context, name string) (string, error)
}

// APIError is a failure reported by the Resend API itself, as opposed to a
// failure to reach it.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("resend: %s (status %d): %s", e.Name, e.StatusCode, e.Message)
}

func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

// ProviderError returns the payload echoed back to the caller.
func (e *APIError) ProviderError() domain.ProviderError {
	return domain.ProviderError{StatusCode: e.StatusCode, Name: e.Name, Message: e.Message}
}

// Client sends transactional email through the Resend HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	staticKey  string
	tokens     TokenGetter
	tokenParam string

	keyMu  sync.Mutex
	apiKey string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithAPIKey uses a key supplied directly by configuration.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.staticKey = strings.TrimSpace(key)
	}
}

// WithParamStoreKey fetches the key from SSM on first use and reuses it for
// the lifetime of the process.
func WithParamStoreKey(tokens TokenGetter, name string) Option {
	return func(c *Client) {
		c.tokens = tokens
		c.tokenParam = strings.TrimSpace(name)
	}
}

func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	hasParam := c.tokens != nil && c.tokenParam != ""
	switch {
	case c.staticKey == "" && !hasParam:
		return nil, errors.New("resend: an API key or a parameter store key source is required")
	case c.staticKey != "" && hasParam:
		return nil, errors.New("resend: API key and parameter store key source are mutually exclusive")
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	if c.staticKey != "" {
		return c.staticKey, nil
	}
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	// Only a successful lookup is cached; a transient SSM failure is retried
	// on the next invocation.
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	key, err := c.tokens.GetToken(ctx, c.tokenParam)
	if err != nil {
		return "", fmt.Errorf("resend: load API key: %w", err)
	}
	c.apiKey = key
	return key, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func emailsURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/emails"
}

// Send submits one email. A rejection by the API is returned as *APIError;
// any other error means the call could not be completed.
func (c *Client) Send(ctx context.Context, msg domain.Email) (domain.SendReceipt, error) {
	if len(msg.To) == 0 {
		return domain.SendReceipt{}, errors.New("resend: at least one recipient is required")
	}

	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return domain.SendReceipt{}, err
	}

	body, err := json.Marshal(sendRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return domain.SendReceipt{}, fmt.Errorf("resend: marshal request: %w", err)
	}

	url := emailsURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.SendReceipt{}, fmt.Errorf("resend: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("User-Agent", userAgent)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return domain.SendReceipt{}, fmt.Errorf("resend: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return domain.SendReceipt{}, decodeAPIError(res.StatusCode, buf)
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return domain.SendReceipt{}, fmt.Errorf("resend: read response body: %w", err)
	}
	var payload sendResponse
	if err := json.Unmarshal(buf, &payload); err != nil {
		return domain.SendReceipt{}, fmt.Errorf("resend: decode response: %w", err)
	}
	if payload.ID == "" {
		return domain.SendReceipt{}, errors.New("resend: response missing email id")
	}
	return domain.SendReceipt{ID: payload.ID}, nil
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Name = payload.Name
		apiErr.Message = payload.Message
	}
	if apiErr.Name == "" {
		apiErr.Name = "application_error"
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
