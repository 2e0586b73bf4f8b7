package contactform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfolio-contact/handler"
	"portfolio-contact/internal/domain"
	"portfolio-contact/internal/usecase"
)

// doerFunc adapts a function to HTTPDoer.
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newFilledForm(t *testing.T, doer HTTPDoer) *Form {
	t.Helper()
	f, err := New("https://www.example.com/api/contact", WithHTTPDoer(doer), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, f.UpdateField(FieldName, "Ana"))
	require.NoError(t, f.UpdateField(FieldEmail, "ana@example.com"))
	require.NoError(t, f.UpdateField(FieldMessage, "Hi"))
	return f
}

var anaDraft = domain.Submission{Name: "Ana", Email: "ana@example.com", Message: "Hi"}

func TestNew(t *testing.T) {
	_, err := New(" ")
	require.Error(t, err)

	f, err := New("https://www.example.com/api/contact")
	require.NoError(t, err)
	snap := f.Snapshot()
	require.Equal(t, StatusIdle, snap.Status)
	require.Empty(t, snap.Message)
	require.Equal(t, domain.Submission{}, snap.Draft)
	require.False(t, f.Sending())
}

func TestEndpointFor(t *testing.T) {
	got, err := EndpointFor("https://www.example.com/")
	require.NoError(t, err)
	require.Equal(t, "https://www.example.com/api/contact", got)

	got, err = EndpointFor("http://localhost:8888")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8888/api/contact", got)

	_, err = EndpointFor("/relative")
	require.Error(t, err)
}

func TestUpdateField(t *testing.T) {
	f := newFilledForm(t, doerFunc(nil))
	require.Equal(t, anaDraft, f.Snapshot().Draft)

	err := f.UpdateField(Field("phone"), "123")
	require.ErrorIs(t, err, ErrUnknownField)
	require.Equal(t, anaDraft, f.Snapshot().Draft)
}

func TestSubmit_Success(t *testing.T) {
	var got *http.Request
	var gotBody domain.Submission
	f := newFilledForm(t, doerFunc(func(r *http.Request) (*http.Response, error) {
		got = r
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		return jsonResponse(200, `{"message":"Your message has been sent successfully!"}`), nil
	}))

	snap, err := f.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, snap.Status)
	require.Equal(t, "Your message has been sent successfully!", snap.Message)
	require.Equal(t, domain.Submission{}, snap.Draft)
	require.Equal(t, snap, f.Snapshot())

	require.Equal(t, http.MethodPost, got.Method)
	require.Equal(t, "application/json", got.Header.Get("Content-Type"))
	require.Equal(t, "/api/contact", got.URL.Path)
	require.Equal(t, anaDraft, gotBody)
}

func TestSubmit_ServerError(t *testing.T) {
	f := newFilledForm(t, doerFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(400, `{"message":"Error sending email."}`), nil
	}))

	snap, err := f.Submit(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 400, se.StatusCode)
	require.Equal(t, StatusError, snap.Status)
	require.Equal(t, "Error sending email.", snap.Message)
	require.Equal(t, anaDraft, snap.Draft, "draft is kept on failure")
}

func TestSubmit_ServerErrorWithoutMessage(t *testing.T) {
	for _, body := range []string{`{}`, `<html>bad gateway</html>`, ``} {
		f := newFilledForm(t, doerFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(502, body), nil
		}))

		snap, err := f.Submit(context.Background())
		require.Error(t, err)
		require.Equal(t, StatusError, snap.Status)
		require.Equal(t, FallbackErrorMessage, snap.Message, "body=%q", body)
	}
}

func TestSubmit_NetworkFailure(t *testing.T) {
	f := newFilledForm(t, doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	}))

	snap, err := f.Submit(context.Background())
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, StatusError, snap.Status)
	require.Equal(t, NetworkErrorMessage, snap.Message)
	require.Equal(t, anaDraft, snap.Draft)
}

func TestSubmit_SuccessWithoutMessage(t *testing.T) {
	f := newFilledForm(t, doerFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(204, ``), nil
	}))

	snap, err := f.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, snap.Status)
	require.Equal(t, FallbackSuccessMessage, snap.Message)
}

func TestSubmit_ClearsPreviousMessageAndRetriesManually(t *testing.T) {
	calls := 0
	f := newFilledForm(t, doerFunc(func(*http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("offline")
		}
		return jsonResponse(200, `{"message":"ok"}`), nil
	}))

	snap, err := f.Submit(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusError, snap.Status)
	require.Equal(t, 1, calls, "no automatic retry")

	snap, err = f.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, snap.Status)
	require.Equal(t, "ok", snap.Message)
	require.Equal(t, 2, calls)
}

func TestSubmit_RejectsConcurrentSubmit(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	f := newFilledForm(t, doerFunc(func(*http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return jsonResponse(200, `{"message":"sent"}`), nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()

	<-started
	require.True(t, f.Sending())
	snap := f.Snapshot()
	require.Equal(t, StatusSending, snap.Status)
	require.Empty(t, snap.Message)

	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-done)
	require.False(t, f.Sending())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls, "duplicate submit must not send a second request")
}

func TestSubmit_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	f, err := New(srv.URL+DefaultPath, WithHTTPDoer(srv.Client()), WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	snap, err := f.Submit(ctx)
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, StatusError, snap.Status)
}

// stubRelay stands in for the email use case behind the real handler.
type stubRelay struct {
	err error
}

func (s stubRelay) Send(_ context.Context, _ usecase.SendInput) (usecase.SendOutput, error) {
	return usecase.SendOutput{Receipt: domain.SendReceipt{ID: "email-1"}}, s.err
}

func newRelayServer(t *testing.T, relay handler.ContactSender) *httptest.Server {
	t.Helper()
	cors, err := handler.NewCORSPolicy([]string{"*"}, 0)
	require.NoError(t, err)
	h, err := handler.NewHandler(relay, cors, quietLogger())
	require.NoError(t, err)
	return httptest.NewServer(h)
}

func TestSubmit_AgainstRelayHandler(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  Status
		message string
		reset   bool
	}{
		{name: "sent", status: StatusSuccess, message: "Your message has been sent successfully!", reset: true},
		{name: "provider error", err: &usecase.Error{Code: usecase.ErrorProvider, Provider: &domain.ProviderError{Name: "rate_limit_exceeded"}}, status: StatusError, message: "Error sending email."},
		{name: "internal", err: errors.New("boom"), status: StatusError, message: "Internal server error."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newRelayServer(t, stubRelay{err: tc.err})
			defer srv.Close()

			endpoint, err := EndpointFor(srv.URL)
			require.NoError(t, err)
			f, err := New(endpoint, WithHTTPDoer(srv.Client()), WithLogger(quietLogger()))
			require.NoError(t, err)
			require.NoError(t, f.UpdateField(FieldName, "Ana"))
			require.NoError(t, f.UpdateField(FieldEmail, "ana@example.com"))
			require.NoError(t, f.UpdateField(FieldMessage, "Hi"))

			snap, _ := f.Submit(context.Background())
			require.Equal(t, tc.status, snap.Status)
			require.Equal(t, tc.message, snap.Message)
			if tc.reset {
				require.Equal(t, domain.Submission{}, snap.Draft)
			} else {
				require.Equal(t, anaDraft, snap.Draft)
			}
		})
	}
}
