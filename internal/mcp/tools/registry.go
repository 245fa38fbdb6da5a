package tools

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"mcpd/internal/mcp/protocol"
)

// HandlerPrefix is prepended to a tool name to form the name its capability
// is registered under: tool "echo" is served by "tool_echo".
const HandlerPrefix = "tool_"

var validToolName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ErrRegistrySealed is returned by Register once the registry is serving.
var ErrRegistrySealed = errors.New("tool registry is sealed")

// Handler is a function that executes a tool
type Handler func(ctx context.Context, arguments map[string]interface{}) Outcome

// Registry maps tool names to handlers. It is filled at startup, sealed, and
// read-only while requests are served.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler // keyed by HandlerName(tool)
	sealed   bool
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// ValidName reports whether name only uses [A-Za-z0-9_].
func ValidName(name string) bool {
	return validToolName.MatchString(name)
}

// HandlerName returns the name the capability for tool is registered under.
func HandlerName(tool string) string {
	return HandlerPrefix + tool
}

// Register registers the handler for tool
func (r *Registry) Register(tool string, handler Handler) error {
	if !ValidName(tool) {
		return fmt.Errorf("invalid tool name %q", tool)
	}
	if handler == nil {
		return fmt.Errorf("tool %s has a nil handler", tool)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("cannot register %s: %w", tool, ErrRegistrySealed)
	}

	name := HandlerName(tool)
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.handlers[name] = handler
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Resolve returns the handler registered for tool
func (r *Registry) Resolve(tool string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[HandlerName(tool)]
	return handler, ok
}

// Execute validates the tool name, resolves it and invokes the handler. A
// failed outcome is reported as an internal error carrying the handler's
// output; a successful one is wrapped in the MCP content envelope.
func (r *Registry) Execute(ctx context.Context, tool string, arguments map[string]interface{}) (*protocol.ToolCallResult, *protocol.MCPError) {
	if !ValidName(tool) {
		return nil, protocol.NewInvalidToolNameError()
	}

	handler, ok := r.Resolve(tool)
	if !ok {
		return nil, protocol.NewToolNotFoundError(tool)
	}

	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	outcome := invoke(ctx, handler, arguments)
	if !outcome.OK {
		return nil, protocol.NewToolExecutionError(outcome.Text)
	}
	return protocol.NewTextResult(outcome.Text), nil
}

// invoke runs handler, turning a panic into a failed outcome.
func invoke(ctx context.Context, handler Handler, arguments map[string]interface{}) (outcome Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = Failedf("panic: %v", rec)
		}
	}()
	return handler(ctx, arguments)
}

// Names returns the registered tool names (without prefix), sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, strings.TrimPrefix(name, HandlerPrefix))
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of registered tools
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
