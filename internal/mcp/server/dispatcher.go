package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"mcpd/internal/config"
	"mcpd/internal/logging"
	"mcpd/internal/mcp/protocol"
	"mcpd/internal/mcp/tools"
)

// Dispatcher turns one request line into at most one response line. It holds
// no per-request state; everything it reads is fixed at construction.
type Dispatcher struct {
	initResult protocol.InitializeResult
	tools      []protocol.Tool
	registry   *tools.Registry
	sink       *logging.Sink
}

// NewDispatcher creates a dispatcher serving cfg's documents and the tools
// in registry. The registry is expected to be sealed.
func NewDispatcher(cfg *config.Config, registry *tools.Registry, sink *logging.Sink) *Dispatcher {
	descriptors := cfg.Tools
	if descriptors == nil {
		descriptors = []protocol.Tool{}
	}

	return &Dispatcher{
		initResult: cfg.Server.InitializeResult(),
		tools:      descriptors,
		registry:   registry,
		sink:       sink,
	}
}

// Dispatch handles a single line of input. It returns the encoded response,
// or "" when nothing must be written: blank input, notification methods, and
// requests that carried no id.
func (d *Dispatcher) Dispatch(ctx context.Context, line []byte) string {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return ""
	}
	d.sink.Request(string(line))

	req, mcpErr := protocol.ParseRequest(line)
	if mcpErr != nil {
		// a well-formed envelope with bad params is still a notification
		if req != nil && mcpErr.Code == protocol.InvalidParams &&
			(req.IsNotification() || protocol.IsNotificationMethod(req.Method)) {
			d.sink.Error("invalid params on notification", "method", req.Method, "error", mcpErr.Message)
			return ""
		}
		var id json.RawMessage
		if req != nil {
			id = req.ID
		}
		d.sink.Error("invalid request", "code", mcpErr.Code, "error", mcpErr.Message)
		return d.emit(protocol.NewErrorResponse(id, mcpErr))
	}

	if protocol.IsNotificationMethod(req.Method) {
		d.sink.Info("notification received", "method", req.Method)
		return ""
	}

	result, mcpErr := d.route(ctx, req)

	if req.IsNotification() {
		d.sink.Info("response suppressed for request without id", "method", req.Method)
		return ""
	}

	if mcpErr != nil {
		d.sink.Error("request failed", "method", req.Method, "code", mcpErr.Code, "error", mcpErr.Message)
		return d.emit(protocol.NewErrorResponse(req.ID, mcpErr))
	}
	return d.emit(protocol.NewResultResponse(req.ID, result))
}

// Reject answers input that never reached the parser with mcpErr and a null
// id. reason and keyvals go to the log.
func (d *Dispatcher) Reject(reason string, mcpErr *protocol.MCPError, keyvals ...interface{}) string {
	d.sink.Error(reason, append(keyvals, "code", mcpErr.Code)...)
	return d.emit(protocol.NewErrorResponse(nil, mcpErr))
}

// route maps a method to its handler
func (d *Dispatcher) route(ctx context.Context, req *protocol.JSONRPCRequest) (interface{}, *protocol.MCPError) {
	switch req.Method {
	case protocol.MethodInitialize:
		return d.initResult, nil
	case protocol.MethodPing:
		return struct{}{}, nil
	case protocol.MethodListTools:
		return protocol.ListToolsResult{Tools: d.tools}, nil
	case protocol.MethodCallTool:
		return d.callTool(ctx, req.Params)
	default:
		return nil, protocol.NewMethodNotFoundError(req.Method)
	}
}

// callTool extracts name and arguments from params and runs the tool. A
// missing or non-string name is treated as a malformed tool name.
func (d *Dispatcher) callTool(ctx context.Context, params json.RawMessage) (interface{}, *protocol.MCPError) {
	var fields map[string]json.RawMessage
	if len(params) > 0 {
		if err := json.Unmarshal(params, &fields); err != nil {
			return nil, protocol.NewInvalidParamsError("params must be an object")
		}
	}

	var name string
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &name); err != nil {
			name = ""
		}
	}

	arguments := map[string]interface{}{}
	if raw, ok := fields["arguments"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &arguments); err != nil || arguments == nil {
			return nil, protocol.NewInvalidParamsError("arguments must be an object")
		}
	}

	result, mcpErr := d.registry.Execute(ctx, name, arguments)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return result, nil
}

// emit encodes resp and mirrors it to the log. Encoding failures fall back to
// an internal error carrying the same id.
func (d *Dispatcher) emit(resp *protocol.JSONRPCResponse) string {
	line, err := protocol.Encode(resp)
	if err != nil {
		d.sink.Error("failed to encode response", "error", err)
		fallback := protocol.NewErrorResponse(resp.ID, protocol.NewInternalError(fmt.Sprintf("failed to encode response: %v", err)))
		if line, err = protocol.Encode(fallback); err != nil {
			d.sink.Error("failed to encode fallback response", "error", err)
			return ""
		}
	}
	d.sink.Response(line)
	return line
}

// Tools returns the descriptors served by tools/list
func (d *Dispatcher) Tools() []protocol.Tool {
	return d.tools
}
