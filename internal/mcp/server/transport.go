package server

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"mcpd/internal/jsonutil"
	"mcpd/internal/logging"
	"mcpd/internal/mcp/protocol"
)

// MaxLineSize bounds a single request line
const MaxLineSize = 16 * 1024 * 1024

// Transport feeds lines from a reader through a Dispatcher and writes each
// response as one line. Requests are handled strictly one at a time.
type Transport struct {
	dispatcher *Dispatcher
	sink       *logging.Sink
}

// NewTransport creates a new transport
func NewTransport(dispatcher *Dispatcher, sink *logging.Sink) *Transport {
	return &Transport{
		dispatcher: dispatcher,
		sink:       sink,
	}
}

// Serve processes newline-delimited requests until reader is exhausted or
// ctx is cancelled. Every response is flushed before the next line is read.
// Only I/O failures end the loop; a bad request never does. A line longer
// than MaxLineSize is discarded up to its newline and answered with an
// invalid request error.
func (t *Transport) Serve(ctx context.Context, reader io.Reader, writer io.Writer) error {
	bufReader := bufio.NewReader(reader)
	bufWriter := bufio.NewWriter(writer)

	t.sink.Info("serving", "mode", "continuous")

	for {
		if err := ctx.Err(); err != nil {
			t.sink.Info("stopping", "reason", err, "discarded_bytes", bufReader.Buffered())
			return nil
		}

		line, size, err := readLine(bufReader)
		if err == io.EOF {
			t.sink.Info("input closed")
			return nil
		}
		if err != nil {
			t.sink.Error("failed to read request", "error", err)
			return fmt.Errorf("failed to read request: %w", err)
		}

		var response string
		switch {
		case size > MaxLineSize:
			response = t.dispatcher.Reject("request line too long", protocol.NewInvalidRequestError(), "size", size, "limit", MaxLineSize)
		case len(line) == 0:
			continue
		default:
			response = t.dispatcher.Dispatch(ctx, line)
		}

		if err := t.write(bufWriter, response); err != nil {
			return err
		}
	}
}

// readLine returns the next line without its line ending, and the line's
// full size. Bytes past MaxLineSize are read and thrown away, so line is
// nil whenever size exceeds the limit.
func readLine(r *bufio.Reader) ([]byte, int, error) {
	var line []byte
	size := 0
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err == io.EOF && size > 0 {
			// last line had no newline and ended on a buffer boundary
			return line, size, nil
		}
		if err != nil {
			return nil, size, err
		}

		size += len(chunk)
		if size <= MaxLineSize {
			line = append(line, chunk...)
		} else {
			line = nil
		}

		if !isPrefix {
			return line, size, nil
		}
	}
}

// ServeOnce reads the whole of reader as a single request, which may be
// pretty-printed over several lines, and answers it.
func (t *Transport) ServeOnce(ctx context.Context, reader io.Reader, writer io.Writer) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		t.sink.Error("failed to read request", "error", err)
		return fmt.Errorf("failed to read request: %w", err)
	}

	t.sink.Info("serving", "mode", "single-shot")

	bufWriter := bufio.NewWriter(writer)
	return t.write(bufWriter, t.dispatcher.Dispatch(ctx, jsonutil.CompactLine(data)))
}

func (t *Transport) write(w *bufio.Writer, response string) error {
	if response == "" {
		return nil
	}

	if _, err := w.WriteString(response + "\n"); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}

	// Flush the writer to ensure response is sent
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush response: %w", err)
	}
	return nil
}
