package protocol

import (
	"encoding/json"
	"strings"
)

// MCP Protocol Message Types

// InitializeResult represents an initialize response
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Instructions    string       `json:"instructions,omitempty"`
}

// ListToolsResult represents a tools/list response
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolRequest represents tools/call params. Arguments stays raw until
// the dispatcher has checked it is an object.
type CallToolRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// MCP Method Names
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodCancelled   = "notifications/cancelled"
	MethodPing        = "ping"
	MethodListTools   = "tools/list"
	MethodCallTool    = "tools/call"
)

const notificationPrefix = "notifications/"

// IsNotificationMethod reports whether method names a notification. Such
// messages never get a response, whether or not they carry an id.
func IsNotificationMethod(method string) bool {
	return method == MethodInitialized || strings.HasPrefix(method, notificationPrefix)
}
