// Package builtin ships the tools registered by the mcpd binary.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"mcpd/internal/mcp/protocol"
	"mcpd/internal/mcp/tools"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/oliveagle/jsonpath"
)

// Tool pairs a descriptor with the handler serving it
type Tool struct {
	Descriptor mcp.Tool
	Handler    tools.Handler
}

// jsonQueryArgs documents the json_query arguments; its schema is reflected
type jsonQueryArgs struct {
	Document interface{} `json:"document" jsonschema:"description=JSON document to query given as a string or an object"`
	Path     string      `json:"path" jsonschema:"minLength=1,description=JSONPath expression such as $.store.book[0].title"`
}

// All returns every built-in tool
func All() []Tool {
	echoTool := mcp.NewTool("echo",
		mcp.WithDescription("Greet the given text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to echo back"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	wordCountTool := mcp.NewTool("word_count",
		mcp.WithDescription("Count the whitespace separated words in a text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to count words in"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	jsonQueryTool := mcp.NewToolWithRawSchema("json_query",
		"Evaluate a JSONPath expression against a JSON document and return the match as JSON",
		reflectSchema(&jsonQueryArgs{}),
	)

	return []Tool{
		{Descriptor: echoTool, Handler: handleEcho},
		{Descriptor: jsonQueryTool, Handler: handleJSONQuery},
		{Descriptor: wordCountTool, Handler: handleWordCount},
	}
}

// reflectSchema builds an inline object schema from the struct tags of v
func reflectSchema(v interface{}) json.RawMessage {
	r := &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
	schema := r.Reflect(v)
	schema.Version = ""

	data, err := json.Marshal(schema)
	if err != nil {
		// only reachable with a type the reflector cannot describe
		panic(fmt.Sprintf("reflect schema: %v", err))
	}
	return data
}

// Register adds every built-in tool to registry
func Register(registry *tools.Registry) error {
	for _, tool := range All() {
		if err := registry.Register(tool.Descriptor.Name, tool.Handler); err != nil {
			return fmt.Errorf("failed to register built-in tool: %w", err)
		}
	}
	return nil
}

// Descriptors returns the built-in descriptors in their wire form
func Descriptors() ([]protocol.Tool, error) {
	all := All()
	descriptors := make([]protocol.Tool, 0, len(all))
	for _, tool := range all {
		descriptor, err := toDescriptor(tool.Descriptor)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors, nil
}

func toDescriptor(tool mcp.Tool) (protocol.Tool, error) {
	var descriptor protocol.Tool

	data, err := json.Marshal(tool)
	if err != nil {
		return descriptor, fmt.Errorf("failed to marshal tool %s: %w", tool.Name, err)
	}
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return descriptor, fmt.Errorf("failed to convert tool %s: %w", tool.Name, err)
	}
	return descriptor, nil
}

func handleEcho(ctx context.Context, args map[string]interface{}) tools.Outcome {
	text, ok := args["text"].(string)
	if !ok {
		return tools.Failed("missing required argument: text")
	}
	return tools.Succeeded("Hello, " + text)
}

func handleWordCount(ctx context.Context, args map[string]interface{}) tools.Outcome {
	text, ok := args["text"].(string)
	if !ok {
		return tools.Failed("missing required argument: text")
	}
	return tools.Succeeded(strconv.Itoa(len(strings.Fields(text))))
}

func handleJSONQuery(ctx context.Context, args map[string]interface{}) tools.Outcome {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return tools.Failed("missing required argument: path")
	}

	raw, ok := args["document"]
	if !ok {
		return tools.Failed("missing required argument: document")
	}

	document := raw
	if text, isString := raw.(string); isString {
		if err := json.Unmarshal([]byte(text), &document); err != nil {
			return tools.Failedf("document is not valid JSON: %v", err)
		}
	}

	match, err := jsonpath.JsonPathLookup(document, path)
	if err != nil {
		return tools.Failedf("query %s failed: %v", path, err)
	}

	out, err := json.Marshal(match)
	if err != nil {
		return tools.Failedf("failed to encode result: %v", err)
	}
	return tools.Succeeded(string(out))
}
