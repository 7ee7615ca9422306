package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/toolbus"
)

// Email is one outbound message handed to the delivery collaborator.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailSender delivers outbound email. The real SMTP integration lives
// outside this service; implementations here are collaborators.
type EmailSender interface {
	Send(ctx context.Context, msg Email) error
}

// LogSender records sends to the log instead of delivering. Default wiring
// until an SMTP relay is configured.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs the message and reports success.
func (s *LogSender) Send(ctx context.Context, msg Email) error {
	s.Logger.Info("email send requested",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

func sendEmailTool(deps Deps) toolbus.Definition {
	return toolbus.Definition{
		Name:        "send_email",
		Description: "Send an email to a recipient on behalf of the studio.",
		Scope:       domain.ScopeEmailSend,
		Risk:        domain.RiskHigh,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"to": {"type": "string", "description": "Recipient email address"},
				"subject": {"type": "string"},
				"body": {"type": "string"}
			},
			"required": ["to", "subject", "body"],
			"additionalProperties": false
		}`),
		Execute: func(ctx context.Context, ec toolbus.ExecContext, args json.RawMessage) (json.RawMessage, error) {
			var in Email
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}
			if ec.DryRun {
				return json.Marshal(map[string]interface{}{
					"sent":    false,
					"dryRun":  true,
					"to":      in.To,
					"subject": in.Subject,
				})
			}
			if err := deps.Email.Send(ctx, in); err != nil {
				return nil, fmt.Errorf("send email: %w", err)
			}
			return json.Marshal(map[string]interface{}{
				"sent":    true,
				"to":      in.To,
				"subject": in.Subject,
			})
		},
	}
}
