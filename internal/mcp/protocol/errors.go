package protocol

import "fmt"

// MCPError is a dispatch failure that is reported to the caller as a
// JSON-RPC error response.
type MCPError struct {
	Code    int
	Message string
}

// Error implements the error interface
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// ToJSONRPCError converts MCPError to JSONRPCError
func (e *MCPError) ToJSONRPCError() *JSONRPCError {
	return &JSONRPCError{
		Code:    e.Code,
		Message: e.Message,
	}
}

// NewParseError is returned for input that is not valid JSON
func NewParseError() *MCPError {
	return &MCPError{Code: ParseError, Message: "Parse error"}
}

// NewInvalidRequestError is returned for envelopes that are not JSON-RPC 2.0 requests
func NewInvalidRequestError() *MCPError {
	return &MCPError{Code: InvalidRequest, Message: "Invalid Request"}
}

// NewInvalidToolNameError is returned when a tool name contains characters
// outside [A-Za-z0-9_]
func NewInvalidToolNameError() *MCPError {
	return &MCPError{Code: InvalidRequest, Message: "Invalid tool name format"}
}

// NewMethodNotFoundError creates a new method not found error
func NewMethodNotFoundError(method string) *MCPError {
	return &MCPError{
		Code:    MethodNotFound,
		Message: fmt.Sprintf("Method not found: %s", method),
	}
}

// NewToolNotFoundError creates a new tool not found error
func NewToolNotFoundError(toolName string) *MCPError {
	return &MCPError{
		Code:    MethodNotFound,
		Message: fmt.Sprintf("Tool not found: %s", toolName),
	}
}

// NewInvalidParamsError creates a new invalid params error
func NewInvalidParamsError(detail string) *MCPError {
	return &MCPError{
		Code:    InvalidParams,
		Message: fmt.Sprintf("Invalid params: %s", detail),
	}
}

// NewToolExecutionError carries the handler's raw output so failures can be
// diagnosed from the client side.
func NewToolExecutionError(output string) *MCPError {
	return &MCPError{
		Code:    InternalError,
		Message: fmt.Sprintf("Tool execution error: %s", output),
	}
}

// NewInternalError creates a new internal error
func NewInternalError(detail string) *MCPError {
	return &MCPError{
		Code:    InternalError,
		Message: fmt.Sprintf("Internal error: %s", detail),
	}
}
