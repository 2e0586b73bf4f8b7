// Package app wires configuration into a ready Handler. Both the Lambda
// entrypoint and the local dev server build through here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"portfolio-contact/handler"
	"portfolio-contact/internal/config"
	"portfolio-contact/internal/integrations/paramstore"
	"portfolio-contact/internal/integrations/resend"
	"portfolio-contact/internal/repository"
	"portfolio-contact/internal/usecase"
)

const preflightMaxAge = 10 * time.Minute

// AWSLoader loads SDK configuration. Replaced in tests.
type AWSLoader func(ctx context.Context) (aws.Config, error)

func defaultAWSLoader(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

// Build constructs the Handler. AWS configuration is only loaded when the
// API key lives in SSM or the delivery ledger is enabled.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, loadAWS AWSLoader) (*handler.Handler, error) {
	if loadAWS == nil {
		loadAWS = defaultAWSLoader
	}

	var awsCfg *aws.Config
	needAWS := cfg.ResendAPIKeyParam != "" || cfg.LedgerEnabled()
	if needAWS {
		c, err := loadAWS(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: load AWS config: %w", err)
		}
		awsCfg = &c
	}

	resendOpts := []resend.Option{
		resend.WithBaseURL(cfg.ResendBaseURL),
		resend.WithTimeout(cfg.ResendTimeout),
	}
	if cfg.ResendAPIKeyParam != "" {
		params, err := paramstore.New(awsssm.NewFromConfig(*awsCfg))
		if err != nil {
			return nil, fmt.Errorf("app: create SSM client: %w", err)
		}
		resendOpts = append(resendOpts, resend.WithParamStoreKey(params, cfg.ResendAPIKeyParam))
	} else {
		resendOpts = append(resendOpts, resend.WithAPIKey(cfg.ResendAPIKey))
	}
	sender, err := resend.NewClient(resendOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: create resend client: %w", err)
	}

	var ledger usecase.DeliveryLedger
	if cfg.LedgerEnabled() {
		repo, err := repository.New(awsdynamodb.NewFromConfig(*awsCfg), cfg.DeliveryTable)
		if err != nil {
			return nil, fmt.Errorf("app: create delivery ledger: %w", err)
		}
		ledger = repo
	}

	contact, err := usecase.NewContactService(sender, ledger, usecase.ContactOptions{
		From:          cfg.From,
		To:            cfg.To,
		SubjectSuffix: cfg.SubjectSuffix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("app: create contact service: %w", err)
	}

	cors, err := handler.NewCORSPolicy(cfg.AllowedOrigins, preflightMaxAge)
	if err != nil {
		return nil, fmt.Errorf("app: build CORS policy: %w", err)
	}

	h, err := handler.NewHandler(contact, cors, logger)
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}
	return h, nil
}
