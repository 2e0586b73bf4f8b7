package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"portfolio-contact/internal/domain"
)

// EmailSender delivers one email. *resend.Client satisfies it.
type EmailSender interface {
	Send(ctx context.Context, msg domain.Email) (domain.SendReceipt, error)
}

// DeliveryLedger records relay outcomes. *repository.Client satisfies it.
type DeliveryLedger interface {
	NewDeliveryRecord(correlationID, outcome, providerID, providerError string) domain.DeliveryRecord
	RecordDelivery(ctx context.Context, rec domain.DeliveryRecord) error
}

// providerErrorer is implemented by errors the provider itself reported.
type providerErrorer interface {
	ProviderError() domain.ProviderError
}

type ContactOptions struct {
	From          string
	To            []string
	SubjectSuffix string
}

type SendInput struct {
	Submission    domain.Submission
	CorrelationID string
}

type SendOutput struct {
	Receipt domain.SendReceipt
}

// ContactService validates a Submission and relays it to the operator
// through the email provider. It holds no per-request state.
type ContactService struct {
	sender        EmailSender
	ledger        DeliveryLedger
	logger        *slog.Logger
	validate      *validator.Validate
	from          string
	to            []string
	subjectSuffix string
}

// NewContactService builds the service. ledger may be nil.
func NewContactService(sender EmailSender, ledger DeliveryLedger, opts ContactOptions, logger *slog.Logger) (*ContactService, error) {
	if sender == nil {
		return nil, errors.New("usecase: email sender must not be nil")
	}
	from := strings.TrimSpace(opts.From)
	if from == "" {
		return nil, errors.New("usecase: from address must not be empty")
	}
	if len(opts.To) == 0 {
		return nil, errors.New("usecase: at least one recipient is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactService{
		sender:        sender,
		ledger:        ledger,
		logger:        logger,
		validate:      newValidator(),
		from:          from,
		to:            append([]string(nil), opts.To...),
		subjectSuffix: strings.TrimSpace(opts.SubjectSuffix),
	}, nil
}

// Send performs exactly one provider call for a valid Submission. Nothing is
// retried.
func (s *ContactService) Send(ctx context.Context, in SendInput) (SendOutput, error) {
	sub := normalizeSubmission(in.Submission)
	if verr := s.validateSubmission(sub); verr != nil {
		return SendOutput{}, verr
	}

	msg, err := s.composeEmail(sub)
	if err != nil {
		return SendOutput{}, newError(ErrorInternal, "compose_error", err)
	}

	receipt, err := s.sender.Send(ctx, msg)
	if err != nil {
		var pe providerErrorer
		if errors.As(err, &pe) {
			payload := pe.ProviderError()
			s.record(ctx, in.CorrelationID, domain.DeliveryProviderError, "", payload.Name)
			out := newError(ErrorProvider, "provider_rejected", err)
			out.Provider = &payload
			return SendOutput{}, out
		}
		s.record(ctx, in.CorrelationID, domain.DeliveryFailed, "", "")
		return SendOutput{}, newError(ErrorInternal, "provider_unreachable", err)
	}

	s.record(ctx, in.CorrelationID, domain.DeliverySent, receipt.ID, "")
	return SendOutput{Receipt: receipt}, nil
}

// record writes to the ledger when one is configured. The email has already
// been sent or refused by this point, so a ledger failure is only logged.
func (s *ContactService) record(ctx context.Context, correlationID, outcome, providerID, providerError string) {
	if s.ledger == nil {
		return
	}
	rec := s.ledger.NewDeliveryRecord(correlationID, outcome, providerID, providerError)
	if err := s.ledger.RecordDelivery(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "delivery ledger write failed",
			"correlation_id", correlationID,
			"outcome", outcome,
			"err", err,
		)
	}
}
