package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/require"

	"portfolio-contact/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func failingLoader(t *testing.T) AWSLoader {
	t.Helper()
	return func(context.Context) (aws.Config, error) {
		t.Fatal("AWS config must not be loaded")
		return aws.Config{}, nil
	}
}

func TestBuild_StaticKeyEndToEnd(t *testing.T) {
	var gotAuth, gotBody string
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		_, _ = w.Write([]byte(`{"id":"email-42"}`))
	}))
	defer provider.Close()

	cfg, err := config.FromMap(map[string]string{
		"RESEND_API_KEY":  "re_static",
		"RESEND_BASE_URL": provider.URL,
		"CONTACT_FROM":    "contact@example.com",
		"CONTACT_TO":      "owner@example.com",
		"ALLOWED_ORIGINS": "https://www.example.com",
	})
	require.NoError(t, err)

	h, err := Build(context.Background(), cfg, quietLogger(), failingLoader(t))
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/contact",
		Headers:    map[string]string{"Origin": "https://www.example.com"},
		Body:       `{"name":"Ana","email":"ana@example.com","message":"<i>Hi</i>"}`,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Body, "email-42")
	require.Equal(t, "https://www.example.com", resp.Headers["Access-Control-Allow-Origin"])

	require.Equal(t, "Bearer re_static", gotAuth)
	require.Contains(t, gotBody, `"reply_to":"ana@example.com"`)
	require.NotContains(t, gotBody, "<i>Hi</i>")
}

func TestBuild_AWSLoadFailure(t *testing.T) {
	cfg, err := config.FromMap(map[string]string{
		"RESEND_API_KEY_PARAM": "/portfolio/resend-token",
		"CONTACT_FROM":         "contact@example.com",
		"CONTACT_TO":           "owner@example.com",
	})
	require.NoError(t, err)

	_, err = Build(context.Background(), cfg, quietLogger(), func(context.Context) (aws.Config, error) {
		return aws.Config{}, errors.New("no credentials")
	})
	require.ErrorContains(t, err, "load AWS config")
}

func TestBuild_WithSSMAndLedger(t *testing.T) {
	cfg, err := config.FromMap(map[string]string{
		"RESEND_API_KEY_PARAM": "/portfolio/resend-token",
		"DELIVERY_TABLE":       "deliveries",
		"CONTACT_FROM":         "contact@example.com",
		"CONTACT_TO":           "owner@example.com",
	})
	require.NoError(t, err)

	loaded := 0
	h, err := Build(context.Background(), cfg, quietLogger(), func(context.Context) (aws.Config, error) {
		loaded++
		return aws.Config{Region: "us-east-1"}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Equal(t, 1, loaded)
}
