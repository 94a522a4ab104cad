package outcome

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/luckyG0429/athena2/internal/model"
)

// Status symbols printed in front of stage outcomes.
const (
	symbolSuccess = "✔"
	symbolFailure = "✖"
	symbolWarning = "⚠"
)

// stageText holds the headline of every outcome of one stage.
type stageText struct {
	success string
	warning string
	failure string
}

var stageTexts = map[string]stageText{
	model.StageMain: {
		success: "Compile successfully!",
		warning: "Compiled with warnings.",
		failure: "Compile failed!",
	},
	model.StageVendor: {
		warning: "Library Compiled with warnings.",
		failure: "Compile library failed!",
	},
}

// Reporter prints human-readable build progress. It is not safe for
// concurrent use.
type Reporter struct {
	out io.Writer

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
	bold   *color.Color
}

// NewReporter returns a Reporter writing to w. Colors follow fatih/color's
// terminal detection and the NO_COLOR convention.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{
		out:    w,
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		cyan:   color.New(color.FgCyan),
		bold:   color.New(color.Bold),
	}
}

// Building announces the selected modules.
func (r *Reporter) Building(kind model.BuildKind, modules []string) {
	noun := "modules"
	if kind == model.KindModule {
		noun = "module"
	}
	fmt.Fprintf(r.out, "Current building %s %s!\n", noun, r.bold.Sprint(strings.Join(modules, " ")))
}

// NotTarget reports a directory that is neither an app nor a module.
func (r *Reporter) NotTarget() {
	r.red.Fprintf(r.out, "%s Build error, the current directory is not an app or a module!\n", symbolFailure)
	r.goodbye()
}

// NoEntries reports that the selected modules have no page entries.
func (r *Reporter) NoEntries() {
	r.red.Fprintf(r.out, "%s No file to build, please check if the ", symbolFailure)
	r.bold.Fprint(r.out, "page")
	r.red.Fprintln(r.out, " directories are empty!")
	r.goodbye()
}

// Stage prints the outcome of one stage. A successful vendor stage prints
// nothing; the main stage follows right after it.
func (r *Reporter) Stage(res model.StageResult) {
	text := stageTexts[res.Stage]

	switch res.Outcome {
	case model.OutcomeSuccess:
		if text.success != "" {
			r.green.Fprintf(r.out, "%s %s\n\n", symbolSuccess, text.success)
		}

	case model.OutcomeWarning:
		r.yellow.Fprintf(r.out, "%s %s\n\n", symbolWarning, text.warning)
		fmt.Fprintln(r.out, strings.Join(res.Messages, WarningSeparator))
		r.warningHints()

	case model.OutcomeFailure:
		r.red.Fprintf(r.out, "%s %s\n\n", symbolFailure, text.failure)
		fmt.Fprint(r.out, FormatError(NewBuildError(res.Messages)))
	}
}

// warningHints prints the two hint lines that follow a warning list.
func (r *Reporter) warningHints() {
	fmt.Fprintf(r.out, "\nSearch for the %s to learn more about each warning.\n",
		color.New(color.Underline, color.FgYellow).Sprint("keywords"))
	fmt.Fprintf(r.out, "To ignore, add %s to the line before.\n\n",
		r.cyan.Sprint("// eslint-disable-next-line"))
}

func (r *Reporter) goodbye() {
	r.bold.Fprintln(r.out, "GoodBye!")
}
