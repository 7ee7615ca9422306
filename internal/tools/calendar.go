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

func listAppointmentsTool(deps Deps) toolbus.Definition {
	return toolbus.Definition{
		Name:        "list_appointments",
		Description: "List the studio's appointments within an optional time window.",
		Scope:       domain.ScopeCalendarRead,
		Risk:        domain.RiskLow,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"from": {"type": "string", "description": "Window start as RFC 3339 timestamp"},
				"to": {"type": "string", "description": "Window end as RFC 3339 timestamp"}
			},
			"additionalProperties": false
		}`),
		Execute: func(ctx context.Context, ec toolbus.ExecContext, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				From string `json:"from"`
				To   string `json:"to"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}
			var from, to time.Time
			var err error
			if in.From != "" {
				if from, err = time.Parse(time.RFC3339, in.From); err != nil {
					return nil, fmt.Errorf("invalid from timestamp: %w", err)
				}
			}
			if in.To != "" {
				if to, err = time.Parse(time.RFC3339, in.To); err != nil {
					return nil, fmt.Errorf("invalid to timestamp: %w", err)
				}
			}
			appts, err := deps.Store.ListAppointments(ctx, ec.StudioID, from, to)
			if err != nil {
				return nil, err
			}
			return json.Marshal(map[string]interface{}{
				"appointments": appts,
				"count":        len(appts),
			})
		},
	}
}

func createAppointmentTool(deps Deps) toolbus.Definition {
	return toolbus.Definition{
		Name:        "create_appointment",
		Description: "Book an appointment on the studio calendar.",
		Scope:       domain.ScopeCalendarWrite,
		Risk:        domain.RiskMedium,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "minLength": 1},
				"startsAt": {"type": "string", "description": "Start as RFC 3339 timestamp"},
				"endsAt": {"type": "string", "description": "End as RFC 3339 timestamp"},
				"clientId": {"type": "string"}
			},
			"required": ["title", "startsAt"],
			"additionalProperties": false
		}`),
		Execute: func(ctx context.Context, ec toolbus.ExecContext, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Title    string `json:"title"`
				StartsAt string `json:"startsAt"`
				EndsAt   string `json:"endsAt"`
				ClientID string `json:"clientId"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}
			startsAt, err := time.Parse(time.RFC3339, in.StartsAt)
			if err != nil {
				return nil, fmt.Errorf("invalid startsAt timestamp: %w", err)
			}
			var endsAt time.Time
			if in.EndsAt != "" {
				if endsAt, err = time.Parse(time.RFC3339, in.EndsAt); err != nil {
					return nil, fmt.Errorf("invalid endsAt timestamp: %w", err)
				}
			}
			if ec.DryRun {
				return json.Marshal(map[string]interface{}{
					"dryRun":   true,
					"created":  false,
					"title":    in.Title,
					"startsAt": startsAt,
				})
			}
			appt := &domain.Appointment{
				AppointmentID: "ap_" + uuid.New().String(),
				StudioID:      ec.StudioID,
				ClientID:      in.ClientID,
				Title:         in.Title,
				StartsAt:      startsAt,
				EndsAt:        endsAt,
				CreatedAt:     time.Now().UTC(),
			}
			if err := deps.Store.CreateAppointment(ctx, appt); err != nil {
				return nil, err
			}
			return json.Marshal(appt)
		},
	}
}
