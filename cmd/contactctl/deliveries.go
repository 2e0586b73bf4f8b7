package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"portfolio-contact/internal/repository"
)

const dayLayout = "2006-01-02"

// ledgerAPI is the DynamoDB surface the delivery ledger needs.
// *dynamodb.Client satisfies it.
type ledgerAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// dynamoLoader builds the DynamoDB client. Replaced in tests.
type dynamoLoader func(ctx context.Context) (ledgerAPI, error)

func defaultDynamoLoader(ctx context.Context) (ledgerAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("contactctl: load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

type deliveriesOptions struct {
	table string
	day   string
	limit int
}

func newDeliveriesCmd(loadDynamo dynamoLoader) *cobra.Command {
	opts := &deliveriesOptions{}
	cmd := &cobra.Command{
		Use:   "deliveries",
		Short: "List relay outcomes recorded in the delivery ledger",
		Long: `List relay outcomes recorded in the delivery ledger for one UTC day,
newest first. Records carry no submitter data.

Example:
  contactctl deliveries --table contact-deliveries --day 2026-03-14 --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeliveries(cmd.Context(), cmd.OutOrStdout(), loadDynamo, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.table, "table", os.Getenv("DELIVERY_TABLE"), "DynamoDB table (defaults to $DELIVERY_TABLE)")
	f.StringVar(&opts.day, "day", "", "UTC day as YYYY-MM-DD (defaults to today)")
	f.IntVar(&opts.limit, "limit", 50, "maximum records to print")
	return cmd
}

func runDeliveries(ctx context.Context, out io.Writer, loadDynamo dynamoLoader, opts *deliveriesOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(opts.table) == "" {
		return errors.New("contactctl: --table or DELIVERY_TABLE is required")
	}
	if opts.limit < 1 {
		return fmt.Errorf("contactctl: --limit must be positive, got %d", opts.limit)
	}
	day := time.Now().UTC()
	if opts.day != "" {
		parsed, err := time.Parse(dayLayout, opts.day)
		if err != nil {
			return fmt.Errorf("contactctl: --day: %w", err)
		}
		day = parsed
	}
	if loadDynamo == nil {
		loadDynamo = defaultDynamoLoader
	}

	api, err := loadDynamo(ctx)
	if err != nil {
		return err
	}
	ledger, err := repository.New(api, opts.table)
	if err != nil {
		return err
	}
	recs, err := ledger.ListDeliveries(ctx, day, opts.limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintf(out, "no deliveries on %s\n", day.Format(dayLayout))
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tOUTCOME\tCORRELATION ID\tPROVIDER")
	for _, r := range recs {
		provider := r.ProviderID
		if provider == "" {
			provider = r.ProviderError
		}
		if provider == "" {
			provider = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.CreatedAt, r.Outcome, r.CorrelationID, provider)
	}
	return tw.Flush()
}
