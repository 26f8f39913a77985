package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Mailer sends one plain-text message.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SES struct {
	client SESAPI
}

func NewSES(client SESAPI) *SES {
	return &SES{client: client}
}

func (s *SES) Send(ctx context.Context, from, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	ctx, span := otel.Tracer("hrleave/email").Start(ctx, "ses.send_email",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("email.subject", subject)))
	defer span.End()

	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}

// Log writes messages to the log instead of sending them.
type Log struct{}

func (Log) Send(_ context.Context, from, to, subject, _ string) error {
	slog.Info("email suppressed", "from", from, "to", to, "subject", subject)
	return nil
}
