package builtin

import (
	"context"
	"encoding/json"
	"testing"

	"mcpd/internal/mcp/protocol"
	"mcpd/internal/mcp/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	registry := tools.NewRegistry()
	require.NoError(t, Register(registry))
	registry.Seal()
	return registry
}

func TestRegister(t *testing.T) {
	registry := newRegistry(t)
	assert.Equal(t, []string{"echo", "json_query", "word_count"}, registry.Names())

	t.Run("twice fails on duplicates", func(t *testing.T) {
		again := tools.NewRegistry()
		require.NoError(t, Register(again))
		err := Register(again)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})
}

func TestDescriptors(t *testing.T) {
	descriptors, err := Descriptors()
	require.NoError(t, err)
	require.Len(t, descriptors, 3)

	byName := make(map[string]protocol.Tool)
	for _, d := range descriptors {
		assert.True(t, tools.ValidName(d.Name), d.Name)
		assert.NotEmpty(t, d.Description, d.Name)
		assert.Equal(t, "object", d.InputSchema["type"], d.Name)
		byName[d.Name] = d
	}

	t.Run("echo requires text", func(t *testing.T) {
		echo := byName["echo"]
		properties, ok := echo.InputSchema["properties"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, properties, "text")
		assert.Contains(t, echo.InputSchema["required"], "text")
	})

	t.Run("json_query schema is reflected", func(t *testing.T) {
		query := byName["json_query"]
		properties, ok := query.InputSchema["properties"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, properties, "document")
		assert.Contains(t, properties, "path")
		assert.NotContains(t, query.InputSchema, "$schema")
		assert.ElementsMatch(t, []interface{}{"document", "path"}, query.InputSchema["required"])
	})

	t.Run("descriptors encode as JSON", func(t *testing.T) {
		data, err := json.Marshal(descriptors)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"name":"word_count"`)
	})
}

func TestEcho(t *testing.T) {
	registry := newRegistry(t)
	ctx := context.Background()

	result, mcpErr := registry.Execute(ctx, "echo", map[string]interface{}{"text": "hi"})
	require.Nil(t, mcpErr)
	assert.Equal(t, "Hello, hi", result.Content[0].Text)

	result, mcpErr = registry.Execute(ctx, "echo", map[string]interface{}{"text": "line one\nline two"})
	require.Nil(t, mcpErr)
	assert.Equal(t, "Hello, line one line two", result.Content[0].Text)

	_, mcpErr = registry.Execute(ctx, "echo", map[string]interface{}{})
	require.NotNil(t, mcpErr)
	assert.Equal(t, protocol.InternalError, mcpErr.Code)
	assert.Contains(t, mcpErr.Message, "missing required argument: text")

	_, mcpErr = registry.Execute(ctx, "echo", map[string]interface{}{"text": 42.0})
	require.NotNil(t, mcpErr)
	assert.Equal(t, protocol.InternalError, mcpErr.Code)
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "", want: "0"},
		{text: "one", want: "1"},
		{text: "  several   words\tand\nlines ", want: "4"},
	}

	for _, tt := range tests {
		outcome := handleWordCount(context.Background(), map[string]interface{}{"text": tt.text})
		assert.True(t, outcome.OK, tt.text)
		assert.Equal(t, tt.want, outcome.Text, tt.text)
	}

	outcome := handleWordCount(context.Background(), map[string]interface{}{})
	assert.False(t, outcome.OK)
}

func TestJSONQuery(t *testing.T) {
	document := map[string]interface{}{
		"store": map[string]interface{}{
			"book": []interface{}{
				map[string]interface{}{"title": "Sayings", "price": 8.95},
				map[string]interface{}{"title": "Sword", "price": 12.99},
			},
		},
	}

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantOK   bool
		wantText string
	}{
		{
			name:     "object document",
			args:     map[string]interface{}{"document": document, "path": "$.store.book[0].title"},
			wantOK:   true,
			wantText: `"Sayings"`,
		},
		{
			name:     "string document",
			args:     map[string]interface{}{"document": `{"a":{"b":[1,2,3]}}`, "path": "$.a.b"},
			wantOK:   true,
			wantText: `[1,2,3]`,
		},
		{
			name:     "number match",
			args:     map[string]interface{}{"document": document, "path": "$.store.book[1].price"},
			wantOK:   true,
			wantText: `12.99`,
		},
		{
			name:     "invalid document text",
			args:     map[string]interface{}{"document": `{"a":`, "path": "$.a"},
			wantText: "document is not valid JSON",
		},
		{
			name:     "missing key",
			args:     map[string]interface{}{"document": document, "path": "$.nothing"},
			wantText: "query $.nothing failed",
		},
		{
			name:     "path must start with root",
			args:     map[string]interface{}{"document": document, "path": "store"},
			wantText: "query store failed",
		},
		{
			name:     "missing path",
			args:     map[string]interface{}{"document": document},
			wantText: "missing required argument: path",
		},
		{
			name:     "missing document",
			args:     map[string]interface{}{"path": "$.a"},
			wantText: "missing required argument: document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := handleJSONQuery(context.Background(), tt.args)
			assert.Equal(t, tt.wantOK, outcome.OK)
			if tt.wantOK {
				assert.Equal(t, tt.wantText, outcome.Text)
			} else {
				assert.Contains(t, outcome.Text, tt.wantText)
			}
		})
	}
}
