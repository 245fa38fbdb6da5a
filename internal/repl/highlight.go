package repl

import (
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// palette colors console output. Colors are only used when the console
// writes to a terminal.
type palette struct {
	enabled bool
	match   lipgloss.Style
	failure lipgloss.Style
}

func newPalette(out io.Writer) palette {
	r := lipgloss.NewRenderer(out)
	return palette{
		enabled: isTerminal(out),
		match:   r.NewStyle().Background(lipgloss.Color("3")).Foreground(lipgloss.Color("0")),
		failure: r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// highlight marks every case-insensitive match of the wildcard pattern in text
func (p palette) highlight(pattern, text string) string {
	if !p.enabled || pattern == "" || text == "" {
		return text
	}

	re, err := regexp.Compile("(?i)" + wildcardToRegexForHighlighting(pattern))
	if err != nil {
		return text
	}

	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var result strings.Builder
	lastEnd := 0
	for _, match := range matches {
		start, end := match[0], match[1]
		result.WriteString(text[lastEnd:start])
		result.WriteString(p.match.Render(text[start:end]))
		lastEnd = end
	}
	result.WriteString(text[lastEnd:])

	return result.String()
}

// failed renders an error response
func (p palette) failed(text string) string {
	if !p.enabled {
		return text
	}
	return p.failure.Render(text)
}

// matchWildcard reports whether name matches pattern as a whole, ignoring case.
// An empty pattern matches everything.
func matchWildcard(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	re, err := regexp.Compile("(?i)" + wildcardToRegex(pattern))
	if err != nil {
		return false
	}
	return re.MatchString(name)
}

// wildcardToRegex converts a wildcard pattern (* and ?) to a regular expression
// This version anchors the pattern to match the entire string (used for filtering)
func wildcardToRegex(pattern string) string {
	return "^" + wildcardToRegexForHighlighting(pattern) + "$"
}

// wildcardToRegexForHighlighting converts a wildcard pattern to regex for highlighting
// This version does NOT anchor the pattern, allowing partial matches within text
func wildcardToRegexForHighlighting(pattern string) string {
	// Escape special regex characters except * and ?
	pattern = regexp.QuoteMeta(pattern)

	// Replace escaped wildcards with regex equivalents
	pattern = strings.ReplaceAll(pattern, `\*`, ".*")
	pattern = strings.ReplaceAll(pattern, `\?`, ".")

	return pattern
}
