package protocol

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// ParseRequest decodes one line of input into a request envelope.
//
// Input that is not JSON at all is rejected with a parse error before any
// field is looked at. Otherwise, when the envelope is invalid, the returned
// request is non-nil whenever the caller's id could be extracted so the error
// response can still echo it.
func ParseRequest(line []byte) (*JSONRPCRequest, *MCPError) {
	if !json.Valid(line) {
		return nil, NewParseError()
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil || fields == nil {
		// valid JSON, but not an object (array, string, null...)
		return nil, NewInvalidRequestError()
	}

	req := &JSONRPCRequest{}
	if raw, ok := fields["id"]; ok {
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		if !isValidID(raw) {
			return nil, NewInvalidRequestError()
		}
		req.ID = normalizeID(compactJSON(raw))
	}

	if !decodeString(fields["jsonrpc"], &req.JSONRPC) || req.JSONRPC != JSONRPCVersion {
		return req, NewInvalidRequestError()
	}

	if !decodeString(fields["method"], &req.Method) || req.Method == "" {
		return req, NewInvalidRequestError()
	}

	if raw, ok := fields["params"]; ok && !isNull(raw) {
		raw = compactJSON(raw)
		if raw[0] != '{' {
			return req, NewInvalidParamsError("params must be an object")
		}
		req.Params = raw
	}

	return req, nil
}

// isValidID accepts the id kinds JSON-RPC allows: string, number, or null.
func isValidID(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	switch c := trimmed[0]; {
	case c == '"':
		return true
	case c == '-' || (c >= '0' && c <= '9'):
		return true
	default:
		return isNull(trimmed)
	}
}

// normalizeID re-encodes a string id holding invalid UTF-8, replacing the bad
// bytes with U+FFFD as encoding/json does. Any other id is kept byte for byte.
func normalizeID(raw json.RawMessage) json.RawMessage {
	if utf8.Valid(raw) {
		return raw
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return raw
	}
	normalized, err := marshalNoEscape(id)
	if err != nil {
		return raw
	}
	return normalized
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeString(raw json.RawMessage, dst *string) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func compactJSON(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
