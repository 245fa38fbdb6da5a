package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"mcpd/internal/jsonutil"
)

var nullID = json.RawMessage("null")

// errMalformedResponse guards the result-xor-error invariant
var errMalformedResponse = errors.New("response must carry exactly one of result or error")

// NewResultResponse builds a success envelope. The id is copied from the
// request unchanged; a missing id becomes null.
func NewResultResponse(id json.RawMessage, result interface{}) *JSONRPCResponse {
	if result == nil {
		result = struct{}{}
	}
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		Result:  result,
		ID:      responseID(id),
	}
}

// NewErrorResponse builds an error envelope for err.
func NewErrorResponse(id json.RawMessage, err *MCPError) *JSONRPCResponse {
	if err == nil {
		err = NewInternalError("missing error")
	}
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		Error:   err.ToJSONRPCError(),
		ID:      responseID(id),
	}
}

// NewTextResult wraps tool output in the MCP content envelope. The wire is
// one object per line, so embedded newlines are collapsed to spaces.
func NewTextResult(text string) *ToolCallResult {
	return &ToolCallResult{
		Content: []Content{
			{Type: "text", Text: jsonutil.CollapseNewlines(text)},
		},
	}
}

// Encode renders resp as a single compact JSON line, without the trailing
// newline.
func Encode(resp *JSONRPCResponse) (string, error) {
	if (resp.Result == nil) == (resp.Error == nil) {
		return "", errMalformedResponse
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return "", fmt.Errorf("failed to encode response: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// CheckCodec round-trips a probe envelope through the JSON codec. The
// server refuses to start when this fails.
func CheckCodec() error {
	line, err := Encode(NewResultResponse(json.RawMessage(`"probe"`), map[string]bool{"ok": true}))
	if err != nil {
		return err
	}

	var back struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      string          `json:"id"`
		Result  map[string]bool `json:"result"`
	}
	if err := json.Unmarshal([]byte(line), &back); err != nil {
		return fmt.Errorf("failed to decode probe response: %w", err)
	}
	if back.JSONRPC != JSONRPCVersion || back.ID != "probe" || !back.Result["ok"] {
		return fmt.Errorf("json codec round trip mismatch: %s", line)
	}
	return nil
}

func responseID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID
	}
	return compactJSON(id)
}
