package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"portfolio-contact/internal/domain"
	"portfolio-contact/internal/usecase"
)

func TestServeHTTP_RoundTrip(t *testing.T) {
	uc := &stubContact{out: usecase.SendOutput{Receipt: domain.SendReceipt{ID: "email-1"}}}
	h, _ := newTestHandler(t, uc)

	req := httptest.NewRequest(http.MethodPost, "/api/contact/", strings.NewReader(validBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", pagesOrigin)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, pagesOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "Your message has been sent successfully!")
	require.Equal(t, "Ana", uc.in.Submission.Name)
}

func TestServeHTTP_Preflight(t *testing.T) {
	h, _ := newTestHandler(t, &stubContact{})

	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", siteOrigin)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
	require.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestToProxyRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/contact?src=footer", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	req.Header.Add("X-Forwarded-For", "a")
	req.Header.Add("X-Forwarded-For", "b")

	ev := toProxyRequest(req, []byte("{}"))
	require.Equal(t, "footer", ev.QueryStringParameters["src"])
	require.Equal(t, "203.0.113.9", ev.RequestContext.Identity.SourceIP)
	require.Equal(t, "a", ev.Headers["X-Forwarded-For"])
	require.Equal(t, []string{"a", "b"}, ev.MultiValueHeaders["X-Forwarded-For"])
	require.Equal(t, "{}", ev.Body)
}
