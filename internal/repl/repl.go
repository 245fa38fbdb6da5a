// Package repl provides an interactive console that feeds requests through
// the same dispatcher the stdio server uses.
//
// Leaving the console ends the process with os.Exit, at most once even when
// several exit paths race. Under WSL the terminal echo is restored first.
package repl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"mcpd/internal/jsonutil"
	"mcpd/internal/mcp/protocol"
	"mcpd/internal/mcp/server"

	prompt "github.com/c-bata/go-prompt"
)

var (
	// Global flag to track if we're in the exit process
	exiting   = false
	exitMutex sync.Mutex
)

// Console turns console input into JSON-RPC requests and prints the
// responses.
type Console struct {
	Dispatcher *server.Dispatcher
	Out        io.Writer
	colors     palette
	nextID     int
}

// NewConsole creates a console printing to out
func NewConsole(dispatcher *server.Dispatcher, out io.Writer) *Console {
	return &Console{Dispatcher: dispatcher, Out: out, colors: newPalette(out)}
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Execute runs one line of console input. It returns false when the
// console should exit.
func (c *Console) Execute(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	switch {
	case cmd == "exit" || cmd == "quit":
		return false
	case cmd == "help":
		c.printHelp()
	case cmd == "tools":
		pattern := ""
		if len(parts) > 1 {
			pattern = parts[1]
		}
		c.printTools(pattern)
	case strings.HasPrefix(input, "{"):
		c.send(ctx, []byte(input))
	case cmd == "call":
		if len(parts) < 2 {
			fmt.Fprintln(c.Out, "Usage: call <tool> [json-arguments]")
			return true
		}
		args := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input[len(parts[0]):]), parts[1]))
		if args == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			fmt.Fprintf(c.Out, "Invalid arguments, expected a JSON object: %s\n", args)
			return true
		}
		params, _ := json.Marshal(map[string]json.RawMessage{
			"name":      json.RawMessage(mustQuote(parts[1])),
			"arguments": json.RawMessage(args),
		})
		c.request(ctx, protocol.MethodCallTool, params)
	case strings.Contains(cmd, "/") || cmd == protocol.MethodInitialize || cmd == protocol.MethodPing:
		var params json.RawMessage
		if len(parts) > 1 {
			params = json.RawMessage(strings.TrimSpace(input[len(parts[0]):]))
			if !json.Valid(params) {
				fmt.Fprintf(c.Out, "Invalid params, expected JSON: %s\n", params)
				return true
			}
		}
		c.request(ctx, parts[0], params)
	default:
		fmt.Fprintf(c.Out, "Unknown command: %s (type 'help')\n", parts[0])
	}
	return true
}

// request builds an envelope for method. Notification methods get no id.
func (c *Console) request(ctx context.Context, method string, params json.RawMessage) {
	req := request{JSONRPC: protocol.JSONRPCVersion, Method: method, Params: params}
	if !protocol.IsNotificationMethod(method) {
		c.nextID++
		id := c.nextID
		req.ID = &id
	}

	line, err := json.Marshal(req)
	if err != nil {
		fmt.Fprintf(c.Out, "Failed to build request: %v\n", err)
		return
	}
	c.send(ctx, line)
}

func (c *Console) send(ctx context.Context, line []byte) {
	response := c.Dispatcher.Dispatch(ctx, line)
	if response == "" {
		fmt.Fprintln(c.Out, "(no response)")
		return
	}

	pretty := jsonutil.Pretty(response)
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal([]byte(response), &envelope) == nil && len(envelope.Error) > 0 {
		pretty = c.colors.failed(pretty)
	}
	fmt.Fprintln(c.Out, pretty)
}

// printTools lists the advertised tools whose name matches pattern
func (c *Console) printTools(pattern string) {
	found := 0
	for _, tool := range c.Dispatcher.Tools() {
		if !matchWildcard(pattern, tool.Name) {
			continue
		}
		found++
		name := fmt.Sprintf("%-20s", tool.Name)
		fmt.Fprintf(c.Out, "  %s %s\n", c.colors.highlight(strings.Trim(pattern, "*?"), name), tool.Description)
	}

	switch {
	case found > 0:
	case pattern != "":
		fmt.Fprintf(c.Out, "No tools match %s\n", pattern)
	default:
		fmt.Fprintln(c.Out, "No tools advertised")
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.Out, `Commands:
  {...}                         Send a raw JSON-RPC request line
  initialize | ping | tools/list [params]
                                Send a request with the next id
  notifications/<name> [params] Send a notification (no id)
  call <tool> [json-arguments]  Call a tool, e.g. call echo {"text":"hi"}
  tools [pattern]               List advertised tools, e.g. tools *count
  help                          Show this help
  exit | quit                   Leave the console`)
}

func mustQuote(s string) []byte {
	data, _ := json.Marshal(s)
	return data
}

// Start runs the console until exit or quit
func Start(ctx context.Context, console *Console) {
	fmt.Fprintln(console.Out, "Welcome to the mcpd console.")
	fmt.Fprintln(console.Out, "Type 'help' for available commands, 'exit' or 'quit' to exit.")

	p := prompt.New(
		func(in string) {
			if !console.Execute(ctx, in) {
				// Use thread-safe exit handling
				exitMutex.Lock()
				if exiting {
					exitMutex.Unlock()
					return
				}
				exiting = true
				exitMutex.Unlock()

				fmt.Fprintln(console.Out, "Bye.")
				// Only fix terminal on WSL
				if isWSL() {
					fixWSLTerminal()
				}
				// Use os.Exit instead of panic to avoid go-prompt's signal handler conflicts
				os.Exit(0)
			}
		},
		console.completer,
		prompt.OptionPrefix("mcpd> "),
		prompt.OptionTitle("mcpd"),
	)

	p.Run()
}

// isWSL checks if we're running in Windows Subsystem for Linux
func isWSL() bool {
	return os.Getenv("WSL_DISTRO_NAME") != "" || os.Getenv("WSLENV") != ""
}

// isWindows checks if we're running on Windows
func isWindows() bool {
	return runtime.GOOS == "windows"
}

// fixWSLTerminal restores terminal input visibility for WSL
func fixWSLTerminal() {
	if isWindows() {
		return
	}

	// Method 1: Use reset command (most effective for WSL)
	cmd := exec.Command("reset")
	_ = cmd.Run()

	// Method 2: Ensure echo is enabled
	cmd = exec.Command("stty", "echo")
	_ = cmd.Run()

	// Method 3: Send terminal escape sequence to restore echo
	fmt.Print("\033[?25h") // Show cursor
	fmt.Print("\033[0m")   // Reset attributes
}

func (c *Console) completer(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	if strings.HasPrefix(before, "call ") && !strings.Contains(strings.TrimPrefix(before, "call "), " ") {
		return prompt.FilterHasPrefix(c.toolSuggestions(), d.GetWordBeforeCursor(), true)
	}
	if strings.Contains(before, " ") {
		return nil
	}

	s := []prompt.Suggest{
		{Text: protocol.MethodInitialize, Description: "initialize [params] Request the server capability document"},
		{Text: protocol.MethodPing, Description: "Check the server is alive"},
		{Text: protocol.MethodListTools, Description: "List advertised tool descriptors"},
		{Text: protocol.MethodInitialized, Description: "Send the initialized notification"},
		{Text: "call", Description: "call <tool> [json-arguments] Call a tool"},
		{Text: "tools", Description: "tools [pattern] List advertised tool names"},
		{Text: "help", Description: "Show help with all available commands"},
		{Text: "exit", Description: "Exit"},
		{Text: "quit", Description: "Exit"},
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}

func (c *Console) toolSuggestions() []prompt.Suggest {
	descriptors := c.Dispatcher.Tools()
	s := make([]prompt.Suggest, 0, len(descriptors))
	for _, tool := range descriptors {
		s = append(s, prompt.Suggest{Text: tool.Name, Description: tool.Description})
	}
	return s
}
