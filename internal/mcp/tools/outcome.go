package tools

import "fmt"

// Outcome is what a tool handler produces: text, plus whether the call
// succeeded. Build one with Succeeded or Failed.
type Outcome struct {
	Text string
	OK   bool
}

// Succeeded returns a successful outcome carrying text
func Succeeded(text string) Outcome {
	return Outcome{Text: text, OK: true}
}

// Failed returns a failed outcome; text is surfaced in the error message
func Failed(text string) Outcome {
	return Outcome{Text: text}
}

// Failedf is Failed with fmt.Sprintf formatting
func Failedf(format string, args ...interface{}) Outcome {
	return Failed(fmt.Sprintf(format, args...))
}
