package protocol

import "encoding/json"

// JSON-RPC 2.0 Protocol Types

// JSONRPCVersion is the JSON-RPC version
const JSONRPCVersion = "2.0"

// MCPProtocolVersion is the MCP protocol version advertised by default
const MCPProtocolVersion = "2024-11-05"

// JSONRPCRequest represents a JSON-RPC 2.0 request as read off the wire.
// ID and Params are kept raw so the id can be echoed back byte for byte.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"` // string, number, or null; absent for notifications
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carried no id field.
func (r *JSONRPCRequest) IsNotification() bool {
	return len(r.ID) == 0
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// JSONRPCError represents a JSON-RPC 2.0 error
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC 2.0 Standard Error Codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// MCP-specific Types

// ServerInfo holds information about the server
type ServerInfo struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// Capabilities defines what features are supported
type Capabilities struct {
	Tools   *ToolsCapability   `json:"tools,omitempty" yaml:"tools,omitempty"`
	Logging *LoggingCapability `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// ToolsCapability indicates tools support
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty" yaml:"listChanged,omitempty"`
}

// LoggingCapability indicates logging support
type LoggingCapability struct{}

// Tool is a read-only tool descriptor as advertised by tools/list. Fields
// other than the ones named here are kept in Extra and encoded back as
// top-level fields, so a descriptor is served exactly as it was configured.
type Tool struct {
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	InputSchema map[string]interface{} `json:"inputSchema" yaml:"inputSchema"`
	Annotations map[string]interface{} `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Extra       map[string]interface{} `json:"-" yaml:",inline"`
}

// ToolCallResult represents the result of calling a tool
type ToolCallResult struct {
	Content []Content `json:"content"`
}

// Content represents content in a message
type Content struct {
	Type string `json:"type"` // always "text" here
	Text string `json:"text"`
}
