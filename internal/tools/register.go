package tools

import (
	"fmt"

	"github.com/lensfolio/agent-gateway/internal/toolbus"
	"github.com/lensfolio/agent-gateway/store"
)

// Deps are the collaborators the built-in tool executors close over.
type Deps struct {
	Store store.Store
	Email EmailSender
}

// RegisterAll registers every built-in tool with the registry. Called once at
// process start; any registration failure aborts startup.
func RegisterAll(reg *toolbus.Registry, deps Deps) error {
	defs := []toolbus.Definition{
		listClientsTool(deps),
		getClientTool(deps),
		createClientTool(deps),
		updateClientTool(deps),
		listInvoicesTool(deps),
		createInvoiceTool(deps),
		sendInvoiceTool(deps),
		listAppointmentsTool(deps),
		createAppointmentTool(deps),
		sendEmailTool(deps),
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("register %s: %w", def.Name, err)
		}
	}
	return nil
}
