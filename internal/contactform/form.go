// Package contactform is the client side of the contact relay: it owns the
// draft Submission, drives the idle/sending/success/error state machine and
// posts one JSON request per submit.
package contactform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"portfolio-contact/internal/domain"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusSending Status = "sending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldMessage Field = "message"
)

const (
	// DefaultPath is the relay route relative to the site origin.
	DefaultPath = "/api/contact"

	FallbackSuccessMessage = "Your message has been sent."
	FallbackErrorMessage   = "An error occurred."
	NetworkErrorMessage    = "Something went wrong. Please try again."

	defaultTimeout = 15 * time.Second
)

var (
	// ErrSubmitInFlight is returned when Submit is called while a previous
	// submission has not resolved. No request is sent.
	ErrSubmitInFlight = errors.New("contactform: a submission is already in flight")
	// ErrNetwork wraps failures where no usable response was received.
	ErrNetwork      = errors.New("contactform: network error")
	ErrUnknownField = errors.New("contactform: unknown field")
)

// StatusError is returned when the relay answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("contactform: relay returned %d: %s", e.StatusCode, e.Message)
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Snapshot is a copy of the form state for rendering.
type Snapshot struct {
	Draft   domain.Submission
	Status  Status
	Message string
}

type relayResponse struct {
	Message string `json:"message"`
}

type Form struct {
	endpoint string
	doer     HTTPDoer
	logger   *slog.Logger

	mu      sync.Mutex
	draft   domain.Submission
	status  Status
	message string
}

type Option func(*Form)

func WithHTTPDoer(doer HTTPDoer) Option {
	return func(f *Form) {
		if doer != nil {
			f.doer = doer
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// EndpointFor joins DefaultPath onto a site origin such as
// "https://www.example.com".
func EndpointFor(siteURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil {
		return "", fmt.Errorf("contactform: parse site url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("contactform: site url %q must be absolute", siteURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + DefaultPath
	return u.String(), nil
}

// New returns an idle form that posts to endpoint.
func New(endpoint string, opts ...Option) (*Form, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("contactform: endpoint must not be empty")
	}
	f := &Form{
		endpoint: endpoint,
		doer:     &http.Client{Timeout: defaultTimeout},
		logger:   slog.Default(),
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// UpdateField sets one draft field. Values are not validated here.
func (f *Form) UpdateField(field Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case FieldName:
		f.draft.Name = value
	case FieldEmail:
		f.draft.Email = value
	case FieldMessage:
		f.draft.Message = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{Draft: f.draft, Status: f.status, Message: f.message}
}

// Sending reports whether the submit control should be disabled.
func (f *Form) Sending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status == StatusSending
}

// Submit posts the current draft once. Each call sends a new email; there is
// no automatic retry. The returned error is nil only when the relay accepted
// the message.
func (f *Form) Submit(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	if f.status == StatusSending {
		snap := Snapshot{Draft: f.draft, Status: f.status, Message: f.message}
		f.mu.Unlock()
		return snap, ErrSubmitInFlight
	}
	f.status = StatusSending
	f.message = ""
	draft := f.draft
	f.mu.Unlock()

	code, msg, err := f.post(ctx, draft)

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case err != nil:
		f.logger.WarnContext(ctx, "contact submission failed", "endpoint", f.endpoint, "err", err)
		f.status = StatusError
		f.message = NetworkErrorMessage
		err = fmt.Errorf("%w: %v", ErrNetwork, err)
	case code >= 200 && code < 300:
		f.status = StatusSuccess
		f.message = orDefault(msg, FallbackSuccessMessage)
		f.draft = domain.Submission{}
	default:
		f.status = StatusError
		f.message = orDefault(msg, FallbackErrorMessage)
		err = &StatusError{StatusCode: code, Message: f.message}
	}
	return Snapshot{Draft: f.draft, Status: f.status, Message: f.message}, err
}

// post returns the status code and server message. err is set only when no
// response was received.
func (f *Form) post(ctx context.Context, draft domain.Submission) (int, string, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return 0, "", fmt.Errorf("marshal draft: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := f.doer.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return 0, "", fmt.Errorf("read response body: %w", err)
	}
	var payload relayResponse
	// A body that is not JSON still carries a usable status code.
	_ = json.Unmarshal(raw, &payload)
	return res.StatusCode, strings.TrimSpace(payload.Message), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
