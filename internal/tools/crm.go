// Package tools registers the built-in CRM, invoicing, calendar and email
// capabilities the assistant may invoke through the tool bus.
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

func listClientsTool(deps Deps) toolbus.Definition {
	return toolbus.Definition{
		Name:        "list_clients",
		Description: "List the studio's clients, optionally filtered by a name or email substring.",
		Scope:       domain.ScopeCRMRead,
		Risk:        domain.RiskLow,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Substring to match against client name or email"},
				"limit": {"type": "integer", "minimum": 1, "maximum": 100}
			},
			"additionalProperties": false
		}`),
		Execute: func(ctx context.Context, ec toolbus.ExecContext, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Query string `json:"query"`
				Limit int    `json:"limit"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}
			clients, err := deps.Store.ListClients(ctx, ec.StudioID, in.Query, in.Limit)
			if err != nil {
				return nil, err
			}
			return json.Marshal(map[string]interface{}{
				"clients": clients,
				"count":   len(clients),
			})
		},
	}
}

func getClientTool(deps Deps) toolbus.Definition {
	return toolbus.Definition{
		Name:        "get_client",
		Description: "Fetch one client record by its identifier.",
		Scope:       domain.ScopeCRMRead,
		Risk:        domain.RiskLow,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"clientId": {"type": "string"}
			},
			"required": ["clientId"],
			"additionalProperties": false
		}`),
		Execute: func(ctx context.Context, ec toolbus.ExecContext, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				ClientID string `json:"clientId"`
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
			return json.Marshal(client)
		},
	}
}

func createClientTool(deps Deps) toolbus.Definition {
	return toolbus.Definition{
		Name:        "create_client",
		Description: "Create a new client record for the studio.",
		Scope:       domain.ScopeCRMWrite,
		Risk:        domain.RiskMedium,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"email": {"type": "string"},
				"phone": {"type": "string"},
				"notes": {"type": "string"}
			},
			"required": ["name"],
			"additionalProperties": false
		}`),
		Execute: func(ctx context.Context, ec toolbus.ExecContext, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Name  string `json:"name"`
				Email string `json:"email"`
				Phone string `json:"phone"`
				Notes string `json:"notes"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}
			if ec.DryRun {
				return json.Marshal(map[string]interface{}{
					"dryRun":  true,
					"created": false,
					"name":    in.Name,
				})
			}
			now := time.Now().UTC()
			client := &domain.Client{
				ClientID:  "cl_" + uuid.New().String(),
				StudioID:  ec.StudioID,
				Name:      in.Name,
				Email:     in.Email,
				Phone:     in.Phone,
				Notes:     in.Notes,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := deps.Store.CreateClient(ctx, client); err != nil {
				return nil, err
			}
			return json.Marshal(client)
		},
	}
}

func updateClientTool(deps Deps) toolbus.Definition {
	return toolbus.Definition{
		Name:        "update_client",
		Description: "Update contact details or notes on an existing client.",
		Scope:       domain.ScopeCRMWrite,
		Risk:        domain.RiskMedium,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"clientId": {"type": "string"},
				"name": {"type": "string", "minLength": 1},
				"email": {"type": "string"},
				"phone": {"type": "string"},
				"notes": {"type": "string"}
			},
			"required": ["clientId"],
			"additionalProperties": false
		}`),
		Execute: func(ctx context.Context, ec toolbus.ExecContext, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				ClientID string  `json:"clientId"`
				Name     *string `json:"name"`
				Email    *string `json:"email"`
				Phone    *string `json:"phone"`
				Notes    *string `json:"notes"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}
			existing, err := deps.Store.GetClient(ctx, in.ClientID)
			if err != nil {
				return nil, err
			}
			if existing == nil || existing.StudioID != ec.StudioID {
				return nil, fmt.Errorf("client %s not found", in.ClientID)
			}
			if ec.DryRun {
				return json.Marshal(map[string]interface{}{
					"dryRun":   true,
					"updated":  false,
					"clientId": in.ClientID,
				})
			}
			update := domain.ClientUpdate{Name: in.Name, Email: in.Email, Phone: in.Phone, Notes: in.Notes}
			if err := deps.Store.UpdateClient(ctx, in.ClientID, update); err != nil {
				return nil, err
			}
			updated, err := deps.Store.GetClient(ctx, in.ClientID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(updated)
		},
	}
}
