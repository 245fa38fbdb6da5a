package repl

import (
	"bytes"
	"context"
	"testing"
	"time"

	"mcpd/internal/builtin"
	"mcpd/internal/config"
	"mcpd/internal/mcp/server"
	"mcpd/internal/mcp/tools"

	prompt "github.com/c-bata/go-prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsole(t *testing.T) (*Console, *bytes.Buffer) {
	t.Helper()

	registry := tools.NewRegistry()
	require.NoError(t, builtin.Register(registry))
	registry.Seal()

	cfg := config.DefaultConfig()
	descriptors, err := builtin.Descriptors()
	require.NoError(t, err)
	cfg.Tools = descriptors

	var out bytes.Buffer
	return NewConsole(server.NewDispatcher(cfg, registry, nil), &out), &out
}

func TestConsole_Execute(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{name: "raw request", input: `{"jsonrpc":"2.0","id":"raw","method":"ping"}`, contains: []string{`"id": "raw"`, `"result": {}`}},
		{name: "bare method", input: "tools/list", contains: []string{`"tools"`, `"echo"`, `"json_query"`}},
		{name: "initialize", input: "initialize", contains: []string{`"protocolVersion": "2024-11-05"`}},
		{name: "notification", input: "notifications/initialized", contains: []string{"(no response)"}},
		{name: "call", input: `call echo {"text":"hi"}`, contains: []string{`"text": "Hello, hi"`}},
		{name: "call without arguments", input: "call echo", contains: []string{"missing required argument: text", "-32603"}},
		{name: "call unknown tool", input: "call nope {}", contains: []string{"Tool not found: nope"}},
		{name: "call with invalid arguments", input: "call echo {oops", contains: []string{"Invalid arguments"}},
		{name: "call usage", input: "call", contains: []string{"Usage: call"}},
		{name: "invalid params", input: "initialize {oops", contains: []string{"Invalid params"}},
		{name: "unknown command", input: "frobnicate", contains: []string{"Unknown command: frobnicate"}},
		{name: "tools", input: "tools", contains: []string{"echo", "word_count"}},
		{name: "tools pattern", input: "tools *COUNT", contains: []string{"word_count", "Count the whitespace"}},
		{name: "tools pattern without match", input: "tools zz*", contains: []string{"No tools match zz*"}},
		{name: "help", input: "help", contains: []string{"Commands:", "call <tool>"}},
		{name: "garbage json", input: "{not json", contains: []string{"-32700"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			console, out := newTestConsole(t)
			assert.True(t, console.Execute(ctx, tt.input))
			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestConsole_ToolsPatternFilters(t *testing.T) {
	console, out := newTestConsole(t)

	console.Execute(context.Background(), "tools json*")
	assert.Contains(t, out.String(), "json_query")
	assert.NotContains(t, out.String(), "echo")
	assert.NotContains(t, out.String(), "word_count")
}

func TestConsole_IDsIncrement(t *testing.T) {
	console, out := newTestConsole(t)
	ctx := context.Background()

	console.Execute(ctx, "ping")
	console.Execute(ctx, "notifications/initialized")
	console.Execute(ctx, "ping")

	assert.Contains(t, out.String(), `"id": 1`)
	assert.Contains(t, out.String(), `"id": 2`)
	assert.NotContains(t, out.String(), `"id": 3`)
}

func TestConsole_Exit(t *testing.T) {
	console, _ := newTestConsole(t)
	ctx := context.Background()

	assert.True(t, console.Execute(ctx, ""))
	assert.True(t, console.Execute(ctx, "   "))
	assert.False(t, console.Execute(ctx, "exit"))
	assert.False(t, console.Execute(ctx, "QUIT"))
}

func TestConsole_Completer(t *testing.T) {
	console, _ := newTestConsole(t)

	complete := func(text string) []string {
		buf := prompt.NewBuffer()
		buf.InsertText(text, false, true)
		var names []string
		for _, s := range console.completer(*buf.Document()) {
			names = append(names, s.Text)
		}
		return names
	}

	assert.Equal(t, []string{"tools/list", "tools"}, complete("to"))
	assert.Contains(t, complete("ca"), "call")
	assert.Equal(t, []string{"echo"}, complete("call ec"))
	assert.ElementsMatch(t, []string{"echo", "json_query", "word_count"}, complete("call "))
	assert.Empty(t, complete("call echo {"))
}

// TestExitHandling tests that the exit handling is thread-safe and doesn't cause panics
func TestExitHandling(t *testing.T) {
	// Test that multiple concurrent exit attempts don't cause panics
	for i := 0; i < 10; i++ {
		go func() {
			exitMutex.Lock()
			if exiting {
				exitMutex.Unlock()
				return
			}
			exiting = true
			exitMutex.Unlock()

			// Reset for next test
			time.Sleep(1 * time.Millisecond)
			exitMutex.Lock()
			exiting = false
			exitMutex.Unlock()
		}()
	}

	// Wait for all goroutines to complete
	time.Sleep(10 * time.Millisecond)
}

// TestWSLDetection tests WSL detection functionality
func TestWSLDetection(t *testing.T) {
	t.Setenv("WSL_DISTRO_NAME", "Ubuntu")
	t.Setenv("WSLENV", "")
	assert.True(t, isWSL())

	t.Setenv("WSL_DISTRO_NAME", "")
	t.Setenv("WSLENV", "PATH/l")
	assert.True(t, isWSL())

	t.Setenv("WSLENV", "")
	assert.False(t, isWSL())
}

func TestMatchWildcard(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{pattern: "", name: "anything", want: true},
		{pattern: "echo", name: "echo", want: true},
		{pattern: "ECHO", name: "echo", want: true},
		{pattern: "ech", name: "echo", want: false},
		{pattern: "ech?", name: "echo", want: true},
		{pattern: "*_query", name: "json_query", want: true},
		{pattern: "json.*", name: "json_query", want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, matchWildcard(tt.pattern, tt.name), "%s vs %s", tt.pattern, tt.name)
	}
}

func TestPalette(t *testing.T) {
	var out bytes.Buffer
	p := newPalette(&out)

	// a buffer is never a terminal
	assert.False(t, p.enabled)
	assert.Equal(t, "echo", p.highlight("ec", "echo"))
	assert.Equal(t, "boom", p.failed("boom"))

	p.enabled = true
	assert.Contains(t, p.highlight("ec", "echo"), "ho")
	assert.Equal(t, "plain", p.highlight("zz", "plain"))
	assert.Equal(t, "plain", p.highlight("", "plain"))
	assert.Contains(t, p.failed("boom"), "boom")
}
