// Package jsonutil provides helpers for keeping JSON on a single wire line and
// for rendering it readably for humans.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

var newlineCollapser = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// CollapseNewlines replaces every line break (\r\n, \n or \r) with a single
// space.
func CollapseNewlines(s string) string {
	return newlineCollapser.Replace(s)
}

// CompactLine turns a JSON document spread over several lines into one line.
// Input that is not valid JSON is returned trimmed but otherwise untouched.
func CompactLine(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return trimmed
	}
	return buf.Bytes()
}

// Pretty formats JSON with recursive nested JSON string expansion, so a tool
// result whose text is itself JSON reads as a tree.
func Pretty(value string) string {
	var jsonData interface{}
	if err := json.Unmarshal([]byte(value), &jsonData); err != nil {
		return value
	}

	prettyJSON, err := json.MarshalIndent(expandNestedJSON(jsonData), "", "  ")
	if err != nil {
		return value
	}

	return string(prettyJSON)
}

// expandNestedJSON recursively expands JSON strings within the data structure.
func expandNestedJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			result[key] = expandNestedJSON(val)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			result[i] = expandNestedJSON(val)
		}
		return result
	case string:
		if isJSONString(v) {
			var nestedData interface{}
			if err := json.Unmarshal([]byte(v), &nestedData); err == nil {
				return expandNestedJSON(nestedData)
			}
		}
		return v
	default:
		return v
	}
}

// isJSONString checks for JSON object or array delimiters after trimming whitespace.
func isJSONString(s string) bool {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) == 0 {
		return false
	}

	return (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"))
}
