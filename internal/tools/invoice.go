package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/toolbus"
)

func listInvoicesTool(deps Deps) toolbus.Definition {
	return toolbus.Definition{
		Name:        "list_invoices",
		Description: "List the studio's invoices, optionally filtered by status (draft, sent, paid, overdue).",
		Scope:       domain.ScopeInvoiceRead,
		Risk:        domain.RiskLow,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"status": {"type": "string", "enum": ["draft", "sent", "paid", "overdue"]},
				"limit": {"type": "integer", "minimum": 1, "maximum": 100}
			},
			"additionalProperties": false
		}`),
		Execute: func(ctx context.Context, ec toolbus.ExecContext, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Status string `json:"status"`
				Limit  int    `json:"limit"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}
			invoices, err := deps.Store.ListInvoices(ctx, ec.StudioID, in.Status, in.Limit)
			if err != nil {
				return nil, err
			}
			return json.Marshal(map[string]interface{}{
				"invoices": invoices,
				"count":    len(invoices),
			})
		},
	}
}

func createInvoiceTool(deps Deps) toolbus.Definition {
	return toolbus.Definition{
		Name:        "create_invoice",
		Description: "Create a draft invoice for a client.",
		Scope:       domain.ScopeInvoiceWrite,
		Risk:        domain.RiskMedium,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"clientId": {"type": "string"},
				"amountCents": {"type": "integer", "minimum": 1},
				"dueDate": {"type": "string", "description": "Due date as YYYY-MM-DD"}
			},
			"required": ["clientId", "amountCents"],
			"additionalProperties": false
		}`),
		Execute: func(ctx context.Context, ec toolbus.ExecContext, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				ClientID    string `json:"clientId"`
				AmountCents int64  `json:"amountCents"`
				DueDate     string `json:"dueDate"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}
			client, err := deps.Store.GetClient(ctx, in.ClientID)
			if err != nil {
				return nil, err
			}
			if client == nil || client.StudioID != ec.StudioID {
				return nil, fmt.Errorf("client %s not found", in.ClientID)
			}
			if ec.DryRun {
				return json.Marshal(map[string]interface{}{
					"dryRun":      true,
					"created":     false,
					"clientId":    in.ClientID,
					"amountCents": in.AmountCents,
				})
			}
			invoice := &domain.Invoice{
				InvoiceID:   "inv_" + uuid.New().String(),
				StudioID:    ec.StudioID,
				ClientID:    in.ClientID,
				AmountCents: in.AmountCents,
				Status:      domain.InvoiceStatusDraft,
				DueDate:     in.DueDate,
				CreatedAt:   time.Now().UTC(),
			}
			if err := deps.Store.CreateInvoice(ctx, invoice); err != nil {
				return nil, err
			}
			return json.Marshal(invoice)
		},
	}
}

func sendInvoiceTool(deps Deps) toolbus.Definition {
	return toolbus.Definition{
		Name:        "send_invoice",
		Description: "Email an invoice to its client and mark it sent. Use for reminders on overdue invoices too.",
		Scope:       domain.ScopeInvoiceWrite,
		Risk:        domain.RiskHigh,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"invoiceId": {"type": "string"},
				"message": {"type": "string", "description": "Optional note included in the email body"}
			},
			"required": ["invoiceId"],
			"additionalProperties": false
		}`),
		Execute: func(ctx context.Context, ec toolbus.ExecContext, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				InvoiceID string `json:"invoiceId"`
				Message   string `json:"message"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}
			invoice, err := deps.Store.GetInvoice(ctx, in.InvoiceID)
			if err != nil {
				return nil, err
			}
			if invoice == nil || invoice.StudioID != ec.StudioID {
				return nil, fmt.Errorf("invoice %s not found", in.InvoiceID)
			}
			client, err := deps.Store.GetClient(ctx, invoice.ClientID)
			if err != nil {
				return nil, err
			}
			if client == nil {
				return nil, fmt.Errorf("client %s not found for invoice %s", invoice.ClientID, in.InvoiceID)
			}
			if client.Email == "" {
				return nil, fmt.Errorf("client %s has no email address", client.ClientID)
			}
			if ec.DryRun {
				return json.Marshal(map[string]interface{}{
					"dryRun":    true,
					"sent":      false,
					"invoiceId": invoice.InvoiceID,
					"to":        client.Email,
				})
			}
			body := fmt.Sprintf("Invoice %s for %s: %.2f due %s.",
				invoice.InvoiceID, client.Name, float64(invoice.AmountCents)/100, invoice.DueDate)
			if in.Message != "" {
				body += "\n\n" + in.Message
			}
			msg := Email{
				To:      client.Email,
				Subject: fmt.Sprintf("Invoice %s", invoice.InvoiceID),
				Body:    body,
			}
			if err := deps.Email.Send(ctx, msg); err != nil {
				return nil, fmt.Errorf("send invoice email: %w", err)
			}
			if invoice.Status == domain.InvoiceStatusDraft {
				if err := deps.Store.UpdateInvoiceStatus(ctx, invoice.InvoiceID, domain.InvoiceStatusSent); err != nil {
					return nil, err
				}
			}
			return json.Marshal(map[string]interface{}{
				"sent":      true,
				"invoiceId": invoice.InvoiceID,
				"to":        client.Email,
			})
		},
	}
}
