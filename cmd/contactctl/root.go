package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"portfolio-contact/internal/contactform"
	"portfolio-contact/internal/logging"
)

type sendOptions struct {
	endpoint string
	site     string
	name     string
	email    string
	message  string
	timeout  time.Duration
	logLevel string
}

func newRootCmd(out io.Writer, loadDynamo dynamoLoader) *cobra.Command {
	root := &cobra.Command{
		Use:   "contactctl",
		Short: "Drive the portfolio contact relay from a terminal",
		Long: `contactctl fills in a contact form draft and submits it to the relay
exactly like the portfolio page does.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newSendCmd(), newDeliveriesCmd(loadDynamo))
	return root
}

func newSendCmd() *cobra.Command {
	opts := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Submit one message to the contact relay",
		Long: `Submit one message to the contact relay. Each run sends a new email.

Example:
  contactctl send --site https://www.example.com --name Ana --email ana@example.com --message "Hi"
  contactctl send --endpoint http://127.0.0.1:8888/api/contact --name Ana --email ana@example.com --message "Hi"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.endpoint, "endpoint", "", "full relay URL")
	f.StringVar(&opts.site, "site", "", "site origin; the relay path is appended")
	f.StringVar(&opts.name, "name", "", "sender name")
	f.StringVar(&opts.email, "email", "", "sender email address")
	f.StringVar(&opts.message, "message", "", "message body")
	f.DurationVar(&opts.timeout, "timeout", 15*time.Second, "request timeout")
	f.StringVar(&opts.logLevel, "log-level", "error", "log level for diagnostics on stderr")
	cmd.MarkFlagsMutuallyExclusive("endpoint", "site")
	cmd.MarkFlagsOneRequired("endpoint", "site")
	for _, name := range []string{"name", "email", "message"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runSend(ctx context.Context, out io.Writer, opts *sendOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := opts.endpoint
	if endpoint == "" {
		var err error
		if endpoint, err = contactform.EndpointFor(opts.site); err != nil {
			return err
		}
	}

	for _, fv := range []struct{ flag, value string }{
		{"name", opts.name}, {"email", opts.email}, {"message", opts.message},
	} {
		if strings.TrimSpace(fv.value) == "" {
			return fmt.Errorf("contactctl: --%s must not be blank", fv.flag)
		}
	}

	logger := logging.New(os.Stderr, opts.logLevel)
	form, err := contactform.New(endpoint,
		contactform.WithHTTPDoer(&http.Client{Timeout: opts.timeout}),
		contactform.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	fields := []struct {
		field contactform.Field
		value string
	}{
		{contactform.FieldName, opts.name},
		{contactform.FieldEmail, opts.email},
		{contactform.FieldMessage, opts.message},
	}
	for _, fv := range fields {
		if err := form.UpdateField(fv.field, fv.value); err != nil {
			return err
		}
	}

	snap, submitErr := form.Submit(ctx)
	fmt.Fprintf(out, "status: %s\nmessage: %s\n", snap.Status, snap.Message)
	if submitErr != nil {
		var statusErr *contactform.StatusError
		if errors.As(submitErr, &statusErr) {
			return fmt.Errorf("contactctl: relay rejected the message (HTTP %d)", statusErr.StatusCode)
		}
		return fmt.Errorf("contactctl: %w", submitErr)
	}
	return nil
}
