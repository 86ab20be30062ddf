package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESClient is the part of the SES API used for alerts
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESAlertNotifier emails security alerts to an operator address via AWS SES
type SESAlertNotifier struct {
	client      SESClient
	fromAddress string
	recipient   string
	logger      *slog.Logger
}

// NewSESAlertNotifier loads the default AWS credential chain for region
func NewSESAlertNotifier(ctx context.Context, region, fromAddress, recipient string, logger *slog.Logger) (*SESAlertNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESAlertNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, recipient, logger), nil
}

func NewSESAlertNotifierWithClient(client SESClient, fromAddress, recipient string, logger *slog.Logger) *SESAlertNotifier {
	return &SESAlertNotifier{
		client:      client,
		fromAddress: fromAddress,
		recipient:   recipient,
		logger:      logger,
	}
}

// Notify sends one plain-text email describing event
func (n *SESAlertNotifier) Notify(ctx context.Context, event models.SecurityEvent) error {
	subject := fmt.Sprintf("[%s] security event: %s", event.Severity, event.Type)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(alertBody(event))},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	n.logger.Info("security alert sent",
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

func alertBody(event models.SecurityEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event:      %s\n", event.Type)
	fmt.Fprintf(&b, "Severity:   %s\n", event.Severity)
	fmt.Fprintf(&b, "Time:       %s\n", event.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	if event.AccountID != "" {
		fmt.Fprintf(&b, "Account:    %s\n", event.AccountID)
	}
	if event.IPAddress != "" {
		fmt.Fprintf(&b, "IP address: %s\n", event.IPAddress)
	}
	if event.UserAgent != "" {
		fmt.Fprintf(&b, "User agent: %s\n", event.UserAgent)
	}

	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, event.Metadata[k])
	}

	b.WriteString("\nThis is an automated message from the admin authentication service.\n")
	return b.String()
}
