package edabot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// DefaultResponseLimit is the character ceiling applied to response text.
const DefaultResponseLimit = 100_000

// IntroductionMessage greets users and explains how to ask a question.
const IntroductionMessage = "Hi! I answer questions about tabular data. " +
	"Attach a CSV, TSV or XLSX file and ask a question about it. " +
	"Add " + PlotMarker + " to your question to get a chart."

// Outcome classifies how a request ended.
type Outcome string

const (
	OutcomeAnswered        Outcome = "answered"
	OutcomeNoAttachment    Outcome = "no_attachment"
	OutcomeRetrievalFailed Outcome = "retrieval_failed"
	OutcomeStreamFailed    Outcome = "stream_failed"
	OutcomeNoCode          Outcome = "no_code"
	OutcomeExecutionFailed Outcome = "execution_failed"
)

// Envelope is the final response handed to a transport.
type Envelope struct {
	Text     string  `json:"text"`
	ImageURL string  `json:"image_url,omitempty"`
	Outcome  Outcome `json:"outcome"`
}

// FormatAnswer formats a successful execution. Without plot the whole
// analysis output is shown followed by the explanation. With plot the chart
// reference line is left out of the output and the chart link is embedded
// after the explanation.
func FormatAnswer(res ExecutionResult, explanation string, plot bool) Envelope {
	var b strings.Builder
	b.WriteString(fence("", res.Output))
	if e := strings.TrimSpace(explanation); e != "" {
		b.WriteString("\n\n")
		b.WriteString(e)
	}
	env := Envelope{Outcome: OutcomeAnswered}
	if plot {
		b.WriteString("\n\n")
		if res.ChartLink == "" || res.ChartLink == NoChartLink {
			b.WriteString("Chart: " + NoChartLink)
		} else {
			fmt.Fprintf(&b, "![chart](%s)", res.ChartLink)
			env.ImageURL = res.ChartLink
		}
	}
	env.Text = b.String()
	return env
}

// FormatFailure reports an execution failure along with the attempted code.
func FormatFailure(code CodeUnit, errDesc string) Envelope {
	var b strings.Builder
	b.WriteString("Running the generated code failed.\n\n")
	b.WriteString("Attempted code:\n\n")
	b.WriteString(fence("python", string(code)))
	b.WriteString("\n\nError:\n\n")
	b.WriteString(fence("", errDesc))
	return Envelope{Text: b.String(), Outcome: OutcomeExecutionFailed}
}

// FormatNoCode reports a completion that contained no code to run.
func FormatNoCode(explanation string) Envelope {
	text := "The model did not produce any code to run, so nothing was executed."
	if e := strings.TrimSpace(explanation); e != "" {
		text += "\n\nModel reply:\n\n" + e
	}
	return Envelope{Text: text, Outcome: OutcomeNoCode}
}

// FormatRetrievalFailure reports a dataset that could not be loaded.
func FormatRetrievalFailure(err error) Envelope {
	return Envelope{
		Text:    fmt.Sprintf("Could not load the attached dataset: %v", err),
		Outcome: OutcomeRetrievalFailed,
	}
}

// FormatNoAttachment asks the user to attach a dataset.
func FormatNoAttachment() Envelope {
	return Envelope{Text: IntroductionMessage, Outcome: OutcomeNoAttachment}
}

// FormatStreamFailure renders a failed completion call for transports.
func FormatStreamFailure(err error) Envelope {
	return Envelope{
		Text:    fmt.Sprintf("The language model call failed: %v", err),
		Outcome: OutcomeStreamFailed,
	}
}

// Truncate bounds s to at most limit characters. Text within the limit is
// returned unmodified; longer text is cut at the last grapheme cluster
// boundary that fits. A non-positive limit disables the bound.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	var (
		n     int
		end   int
		state = -1
		rest  = s
	)
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.StepString(rest, state)
		c := utf8.RuneCountInString(cluster)
		if n+c > limit {
			break
		}
		n += c
		end += len(cluster)
	}
	return s[:end]
}

func fence(lang, body string) string {
	body = strings.TrimRight(body, "\n")
	ticks := "```"
	for strings.Contains(body, ticks) {
		ticks += "`"
	}
	return ticks + lang + "\n" + body + "\n" + ticks
}
