package outcome

import (
	"regexp"
	"strings"
	"time"

	"github.com/luckyG0429/athena2/internal/model"
)

// WarningSeparator joins warnings and multiple errors into one block.
const WarningSeparator = "\n\n"

var (
	// stackFrameRegex matches internal stack frame lines such as
	// "    at Object.<anonymous> (/x/node_modules/loader.js:12:7)".
	stackFrameRegex = regexp.MustCompile(`(?m)^[ \t]*at [^\n]*:\d+:\d+\)?[ \t]*\n?`)

	// blankRunRegex matches runs of two or more blank lines.
	blankRunRegex = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)
)

// UnknownError stands in for an error message that is empty once cleaned.
const UnknownError = "unknown compiler error"

// buildFailedPrefixes are loader prefixes that carry no information.
var buildFailedPrefixes = []string{
	"Module build failed: Error: ",
	"Module build failed: ",
}

// Classification is the cleaned-up error and warning lists of one run.
type Classification struct {
	Errors   []string
	Warnings []string
}

// Classify cleans up raw compiler messages. Every raw message yields one
// cleaned message in the same order, so the outcome follows the raw counts.
func Classify(errs, warnings []string) Classification {
	return Classification{
		Errors:   cleanAll(errs),
		Warnings: cleanAll(warnings),
	}
}

// Outcome returns failure when there is any error, warning when there are
// only warnings, and success otherwise.
func (c Classification) Outcome() model.Outcome {
	switch {
	case len(c.Errors) > 0:
		return model.OutcomeFailure
	case len(c.Warnings) > 0:
		return model.OutcomeWarning
	default:
		return model.OutcomeSuccess
	}
}

// Messages returns what gets reported: the first error only for a failure,
// every warning for a warning outcome, nothing for success.
func (c Classification) Messages() []string {
	switch c.Outcome() {
	case model.OutcomeFailure:
		return c.Errors[:1]
	case model.OutcomeWarning:
		return c.Warnings
	default:
		return nil
	}
}

// StageResult converts the classification into a stage result.
func (c Classification) StageResult(stage string, d time.Duration) model.StageResult {
	msgs := c.Messages()
	if msgs != nil {
		msgs = append([]string(nil), msgs...)
	}
	return model.StageResult{
		Stage:    stage,
		Outcome:  c.Outcome(),
		Messages: msgs,
		Duration: d,
	}
}

// TransportResult is the stage result of a compiler that did not produce
// stats at all.
func TransportResult(stage string, err error, d time.Duration) model.StageResult {
	return model.StageResult{
		Stage:    stage,
		Outcome:  model.OutcomeFailure,
		Messages: []string{err.Error()},
		Duration: d,
	}
}

// cleanAll cleans every message. A message left empty by cleaning falls
// back to its trimmed raw text, then to UnknownError.
func cleanAll(msgs []string) []string {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]string, 0, len(msgs))
	for _, raw := range msgs {
		m := CleanMessage(raw)
		if m == "" {
			m = strings.TrimSpace(raw)
		}
		if m == "" {
			m = UnknownError
		}
		out = append(out, m)
	}
	return out
}

// CleanMessage removes loader noise from one compiler message: the
// "Module build failed" prefix, internal stack frames and runs of blank
// lines.
func CleanMessage(m string) string {
	m = strings.ReplaceAll(m, "\r\n", "\n")
	for _, p := range buildFailedPrefixes {
		m = strings.ReplaceAll(m, p, "")
	}
	m = stackFrameRegex.ReplaceAllString(m, "")
	m = blankRunRegex.ReplaceAllString(m, "\n\n")
	return strings.TrimSpace(m)
}
