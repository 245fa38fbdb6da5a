// Package logging provides the append-only log sink the dispatcher mirrors
// its traffic to.
//
// Records are timestamped and carry one of four kinds: REQUEST and RESPONSE
// for wire traffic, INFO and ERROR for everything else. The sink never writes
// to stdout, which is reserved for the JSON-RPC stream, and it never reports
// write failures back to its caller.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Wire traffic levels sit between info and warn so that "info" shows them and
// "error" hides them.
const (
	RequestLevel  = log.InfoLevel + 1
	ResponseLevel = log.InfoLevel + 2
)

// Sink is a leveled, timestamped, append-only record writer. The zero value
// and a nil *Sink discard everything.
type Sink struct {
	logger  *log.Logger
	session string
	closer  io.Closer
}

// New creates a sink writing to w
func New(w io.Writer, level log.Level) *Sink {
	return newSink(w, level, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "mcpd",
	})
}

// Open creates a sink appending to the file at path, creating the file and
// its directory when needed.
func Open(path string, level log.Level) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	sink := New(logFile, level)
	sink.closer = logFile
	return sink, nil
}

// NewTestSink creates a sink that writes to a buffer for testing
func NewTestSink() (*Sink, *bytes.Buffer) {
	var buf bytes.Buffer
	sink := newSink(&buf, log.DebugLevel, log.Options{
		ReportTimestamp: false, // Easier to test without timestamps
		ReportCaller:    false,
		Prefix:          "Test",
	})
	return sink, &buf
}

func newSink(w io.Writer, level log.Level, opts log.Options) *Sink {
	session := uuid.NewString()

	logger := log.NewWithOptions(w, opts)
	logger.SetStyles(sinkStyles())
	logger.SetLevel(level)

	return &Sink{
		logger:  logger.With("session", session),
		session: session,
	}
}

// sinkStyles spells every level name out in full.
func sinkStyles() *log.Styles {
	styles := log.DefaultStyles()
	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().SetString("DEBUG")
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().SetString("INFO")
	styles.Levels[RequestLevel] = lipgloss.NewStyle().SetString("REQUEST")
	styles.Levels[ResponseLevel] = lipgloss.NewStyle().SetString("RESPONSE")
	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().SetString("WARN")
	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().SetString("ERROR")
	return styles
}

// ParseLevel maps a level name to a level. An empty name means info.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return log.InfoLevel, nil
	case "request":
		return RequestLevel, nil
	case "response":
		return ResponseLevel, nil
	}
	return log.ParseLevel(name)
}

// Session returns the id attached to every record of this sink
func (s *Sink) Session() string {
	if s == nil {
		return ""
	}
	return s.session
}

// Request records an incoming line
func (s *Sink) Request(line string) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Log(RequestLevel, line)
}

// Response records an emitted line
func (s *Sink) Response(line string) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Log(ResponseLevel, line)
}

func (s *Sink) Info(msg string, keyvals ...interface{}) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Info(msg, keyvals...)
}

func (s *Sink) Warn(msg string, keyvals ...interface{}) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Warn(msg, keyvals...)
}

func (s *Sink) Error(msg string, keyvals ...interface{}) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Error(msg, keyvals...)
}

func (s *Sink) Debug(msg string, keyvals ...interface{}) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Debug(msg, keyvals...)
}

// Close closes the underlying log file, if the sink owns one
func (s *Sink) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
