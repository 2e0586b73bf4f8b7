package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"portfolio-contact/internal/domain"
	"portfolio-contact/internal/usecase"
)

// ContactPath is the canonical route. A single trailing slash is accepted
// and normalized before dispatch.
const ContactPath = "/api/contact"

const (
	maxBodyBytes        = 64 << 10
	correlationHeader   = "X-Correlation-Id"
	msgSent             = "Your message has been sent successfully!"
	msgProviderError    = "Error sending email."
	msgInternal         = "Internal server error."
	msgInvalid          = "Invalid submission."
	msgInvalidBody      = "Invalid request body."
	msgBodyTooLarge     = "Request body too large."
	msgNotFound         = "Not found."
	msgMethodNotAllowed = "Method not allowed."
)

// ContactSender is the use case behind POST /api/contact.
type ContactSender interface {
	Send(ctx context.Context, in usecase.SendInput) (usecase.SendOutput, error)
}

// httpStatusCoder is implemented by provider errors that carry the upstream
// HTTP status.
type httpStatusCoder interface {
	HTTPStatusCode() int
}

type contactResponse struct {
	Message string              `json:"message"`
	Data    *domain.SendReceipt `json:"data,omitempty"`
	Error   any                 `json:"error,omitempty"`
}

type validationPayload struct {
	Name   string               `json:"name"`
	Fields []usecase.FieldError `json:"fields,omitempty"`
}

type Handler struct {
	contact ContactSender
	cors    CORSPolicy
	logger  *slog.Logger
	newID   func() string
}

func NewHandler(contact ContactSender, cors CORSPolicy, logger *slog.Logger) (*Handler, error) {
	if contact == nil {
		return nil, errors.New("handler: contact sender must not be nil")
	}
	if !cors.wildcard && len(cors.origins) == 0 {
		return nil, errors.New("handler: CORS policy has no allowed origins")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{contact: contact, cors: cors, logger: logger, newID: uuid.NewString}, nil
}

// CORS returns the policy applied to every response.
func (h *Handler) CORS() CORSPolicy {
	return h.cors
}

// Handle serves one API Gateway proxy event. Every outcome is expressed as
// a response; the returned error is always nil so Lambda never retries.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := strings.TrimSpace(header(req, correlationHeader))
	if correlationID == "" {
		correlationID = h.newID()
	}
	origin := header(req, "Origin")
	preflight := req.HTTPMethod == http.MethodOptions

	headers := map[string]string{correlationHeader: correlationID}
	h.cors.apply(headers, origin, preflight)

	logger := h.logger.With("correlation_id", correlationID, "method", req.HTTPMethod, "path", req.Path)

	if normalizePath(req.Path) != ContactPath {
		return respond(http.StatusNotFound, headers, contactResponse{Message: msgNotFound}), nil
	}

	switch req.HTTPMethod {
	case http.MethodOptions:
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent, Headers: headers}, nil
	case http.MethodPost:
		resp := h.handleContact(ctx, req, headers, correlationID, logger)
		logger.InfoContext(ctx, "contact request handled", "status", resp.StatusCode)
		return resp, nil
	default:
		headers["Allow"] = allowMethods
		return respond(http.StatusMethodNotAllowed, headers, contactResponse{Message: msgMethodNotAllowed}), nil
	}
}

func (h *Handler) handleContact(ctx context.Context, req events.APIGatewayProxyRequest, headers map[string]string, correlationID string, logger *slog.Logger) events.APIGatewayProxyResponse {
	if bodyTooLarge(req) {
		return respond(http.StatusRequestEntityTooLarge, headers, invalidBody(msgBodyTooLarge))
	}
	body, err := requestBody(req)
	if err != nil {
		return respond(http.StatusBadRequest, headers, invalidBody(msgInvalidBody))
	}
	if len(body) > maxBodyBytes {
		return respond(http.StatusRequestEntityTooLarge, headers, invalidBody(msgBodyTooLarge))
	}

	var sub domain.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		return respond(http.StatusBadRequest, headers, invalidBody(msgInvalidBody))
	}

	out, err := h.contact.Send(ctx, usecase.SendInput{Submission: sub, CorrelationID: correlationID})
	if err != nil {
		return h.errorResponse(ctx, err, headers, logger)
	}

	receipt := out.Receipt
	return respond(http.StatusOK, headers, contactResponse{Message: msgSent, Data: &receipt})
}

func (h *Handler) errorResponse(ctx context.Context, err error, headers map[string]string, logger *slog.Logger) events.APIGatewayProxyResponse {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		logger.ErrorContext(ctx, "unexpected contact error", "err", err)
		return respond(http.StatusInternalServerError, headers, contactResponse{Message: msgInternal})
	}

	switch ue.Code {
	case usecase.ErrorValidation:
		return respond(http.StatusBadRequest, headers, contactResponse{
			Message: msgInvalid,
			Error:   validationPayload{Name: "validation_error", Fields: ue.Fields},
		})
	case usecase.ErrorProvider:
		attrs := []any{"reason", ue.Reason, "err", ue.Err}
		var coded httpStatusCoder
		if errors.As(ue.Err, &coded) {
			attrs = append(attrs, "provider_status", coded.HTTPStatusCode())
		}
		logger.WarnContext(ctx, "email provider rejected message", attrs...)
		body := contactResponse{Message: msgProviderError}
		if ue.Provider != nil {
			body.Error = ue.Provider
		}
		return respond(http.StatusBadRequest, headers, body)
	default:
		logger.ErrorContext(ctx, "contact relay failed", "code", ue.Code, "reason", ue.Reason, "err", ue.Err)
		return respond(http.StatusInternalServerError, headers, contactResponse{Message: msgInternal})
	}
}

func invalidBody(msg string) contactResponse {
	return contactResponse{Message: msg, Error: validationPayload{Name: "validation_error"}}
}

func respond(status int, headers map[string]string, body contactResponse) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"message":"` + msgInternal + `"}`)
	}
	headers["Content-Type"] = "application/json"
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(raw),
	}
}

// bodyTooLarge rejects oversized bodies before any base64 decoding. DecodedLen
// is an upper bound, so the exact length is still checked after decoding.
func bodyTooLarge(req events.APIGatewayProxyRequest) bool {
	if !req.IsBase64Encoded {
		return len(req.Body) > maxBodyBytes
	}
	return base64.StdEncoding.DecodedLen(len(req.Body)) > maxBodyBytes+2
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	return base64.StdEncoding.DecodeString(req.Body)
}

// normalizePath strips exactly one trailing slash so "/api/contact/" and
// "/api/contact" route identically.
func normalizePath(p string) string {
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return p[:len(p)-1]
	}
	return p
}

// header looks a name up case-insensitively in both header maps.
func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, vs := range req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}
