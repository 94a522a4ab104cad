package outcome

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fatih/color"
)

// MinifierMarker identifies errors raised by the minifier.
const MinifierMarker = "from UglifyJs"

// MinifyHelpURL documents how to deal with minification failures.
const MinifyHelpURL = "http://bit.ly/2tRViJ9"

// minifyTraceRegex extracts "file:line,column" from a minifier trace of the
// form "... [file:line,column][...]".
var minifyTraceRegex = regexp.MustCompile(`(.+)\[(.+):(.+),(.+)\]\[.+\]`)

// BuildError is a compiler error with its trace. For errors made from
// compiler messages the trace is the message text itself.
type BuildError struct {
	Message string
	Trace   string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return e.Message
}

// NewBuildError joins messages into one error.
func NewBuildError(messages []string) *BuildError {
	msg := strings.Join(messages, WarningSeparator)
	return &BuildError{Message: msg, Trace: "Error: " + msg}
}

// MinifyLocation is the source position of a minification failure.
type MinifyLocation struct {
	File   string
	Line   string
	Column string
}

// String renders file:line, plus :column unless the column is "0".
func (l MinifyLocation) String() string {
	s := l.File + ":" + l.Line
	if l.Column != "0" {
		s += ":" + l.Column
	}
	return s
}

// ParseMinifyTrace extracts the failing location from a minifier trace.
// The boolean is false when the trace does not have the expected shape.
func ParseMinifyTrace(trace string) (MinifyLocation, bool) {
	m := minifyTraceRegex.FindStringSubmatch(trace)
	if m == nil {
		return MinifyLocation{}, false
	}
	return MinifyLocation{File: m[2], Line: m[3], Column: m[4]}, true
}

// FormatError renders a build error for the terminal.
//
// Minifier errors get the failing location (or a generic line when the
// trace cannot be parsed) followed by the help URL. Everything else is
// printed as its message. The result always ends with a blank line.
func FormatError(err *BuildError) string {
	var b strings.Builder

	if err.Trace != "" && strings.Contains(err.Message, MinifierMarker) {
		if loc, ok := ParseMinifyTrace(err.Trace); ok {
			b.WriteString("Failed to minify the code from this file: \n\n")
			b.WriteString(color.YellowString("\t%s", loc.String()))
			b.WriteString("\n\n")
		} else {
			fmt.Fprintf(&b, "Failed to minify the bundle. %s\n", err.Message)
		}
		fmt.Fprintf(&b, "Read more here: %s\n", MinifyHelpURL)
	} else {
		b.WriteString(err.Message)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	return b.String()
}
