// Package toolbus owns the catalog of executable capabilities and mediates
// every tool execution with validation, scope checks, risk gating and an
// append-only audit trail.
package toolbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/lensfolio/agent-gateway/domain"
	"github.com/lensfolio/agent-gateway/internal/llm"
)

// ExecContext carries the caller identity and execution policy for one
// dispatch. DryRun executors must not touch external state; Confirmed is set
// only on the confirmation resume path.
type ExecContext struct {
	SessionID string
	StudioID  string
	UserID    string
	Mode      domain.Mode
	Scopes    []domain.Scope
	DryRun    bool
	Confirmed bool
}

// HasScope reports whether the context carries the given scope.
func (ec ExecContext) HasScope(scope domain.Scope) bool {
	for _, g := range ec.Scopes {
		if g == scope {
			return true
		}
	}
	return false
}

// ExecutorFunc runs one tool. Implementations must branch on ec.DryRun before
// touching external state and still return a representative result shape.
type ExecutorFunc func(ctx context.Context, ec ExecContext, args json.RawMessage) (json.RawMessage, error)

// Definition describes a single executable capability.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON schema for the arguments object
	Scope       domain.Scope
	Risk        domain.RiskTier
	Execute     ExecutorFunc
}

type registeredTool struct {
	def    Definition
	schema *jsonschema.Schema
}

// Registry is the process-wide tool catalog. Populated at startup, read-mostly
// afterwards; the mutex also guards the usage counters.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registeredTool
	usage map[string]int64
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*registeredTool),
		usage: make(map[string]int64),
	}
}

// Register adds a tool definition, compiling its parameter schema up front so
// a bad schema fails at process start rather than on first dispatch.
// Registering the same name twice is an error.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Execute == nil {
		return fmt.Errorf("executor is required for %s", def.Name)
	}
	if !def.Scope.Known() {
		return fmt.Errorf("unknown scope %q for %s", def.Scope, def.Name)
	}

	params := def.Parameters
	if len(params) == 0 {
		params = json.RawMessage(`{"type":"object"}`)
		def.Parameters = params
	}
	var schemaDoc any
	if err := json.Unmarshal(params, &schemaDoc); err != nil {
		return fmt.Errorf("unmarshal schema for %s: %w", def.Name, err)
	}
	c := jsonschema.NewCompiler()
	resource := def.Name + ".json"
	if err := c.AddResource(resource, schemaDoc); err != nil {
		return fmt.Errorf("add schema resource for %s: %w", def.Name, err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	r.tools[def.Name] = &registeredTool{def: def, schema: schema}
	return nil
}

// MustRegister adds a tool definition or panics. For process-start wiring.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

func (r *Registry) get(name string) *registeredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// ListForScopes filters the catalog to tools the granted scopes permit and
// returns their function-calling descriptors, sorted by name. Pure read.
func (r *Registry) ListForScopes(scopes []domain.Scope) []llm.Tool {
	granted := make(map[domain.Scope]bool, len(scopes))
	for _, s := range scopes {
		granted[s] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []llm.Tool
	for _, rt := range r.tools {
		if !granted[rt.def.Scope] {
			continue
		}
		out = append(out, llm.Tool{
			Name:        rt.def.Name,
			Description: rt.def.Description,
			Parameters:  rt.def.Parameters,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UsageCounts snapshots the per-tool dispatch counters.
func (r *Registry) UsageCounts() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.usage))
	for name, n := range r.usage {
		out[name] = n
	}
	return out
}

func (r *Registry) recordUse(name string) {
	r.mu.Lock()
	r.usage[name]++
	r.mu.Unlock()
}
