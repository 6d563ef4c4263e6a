package edabot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// NoChartLink is surfaced in place of a hosted chart link when the export
// fails.
const NoChartLink = "(no link: chart upload failed)"

// ExecContext is the request-scoped environment handed to an Interpreter.
// A new value is built for every request; nothing in it is shared.
type ExecContext struct {
	Dataset *Dataset
	Code    CodeUnit
	Plot    bool // run the chart probe after the result probe

	ResultBinding string
	FigureBinding string
}

// NewExecContext returns an ExecContext with the standard bindings.
func NewExecContext(ds *Dataset, code CodeUnit, plot bool) *ExecContext {
	return &ExecContext{
		Dataset:       ds,
		Code:          code,
		Plot:          plot,
		ResultBinding: ResultBinding,
		FigureBinding: FigureBinding,
	}
}

// Capture is what an interpreter observed while running a code unit.
type Capture struct {
	// Stdout holds everything printed by the code and the follow-up probes,
	// in order. When the chart probe ran, its output is the final line.
	Stdout string

	// Chart holds the PNG rendering of the figure binding, if the chart
	// probe ran.
	Chart []byte
}

// Interpreter runs a code unit against the dataset in ctx.Dataset.
//
// Run executes, in one scope: the code unit, a probe that prints the result
// binding (tabular values as a text table, strings unchanged) and, when
// ec.Plot is set, a final probe that renders the figure binding and prints
// one line. Any exception, including a missing binding, is returned as an
// error whose message describes it; the Capture is still returned.
type Interpreter interface {
	Run(ctx context.Context, ec *ExecContext) (Capture, error)
}

// ChartExporter hands a rendered chart to an image host and returns the
// hosted link.
type ChartExporter interface {
	Export(ctx context.Context, png []byte) (string, error)
}

// ExecutionResult is the outcome of running a code unit.
type ExecutionResult struct {
	OK  bool
	Err string // non-empty when OK is false

	// Lines is the full captured output, one element per line.
	Lines []string

	// Output is the analysis output: every captured line except the chart
	// reference line.
	Output string

	// ChartRef is the last captured line when the plot marker was set.
	ChartRef string

	// ChartLink is the hosted chart link, or NoChartLink when the export
	// failed. Empty when the plot marker was not set.
	ChartLink string
}

// Engine runs code units through an Interpreter and exports charts.
type Engine struct {
	interp   Interpreter
	exporter ChartExporter
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger used for execution diagnostics.
func WithEngineLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine. exporter may be nil, in which case every
// chart export degrades to NoChartLink.
func NewEngine(interp Interpreter, exporter ChartExporter, opts ...EngineOption) *Engine {
	e := &Engine{interp: interp, exporter: exporter, logger: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute runs ec.Code. Interpreter failures, including panics, are reported
// through ExecutionResult rather than as an error. The only error is
// ErrNoCode, returned without executing anything when the unit is empty.
func (e *Engine) Execute(ctx context.Context, ec *ExecContext) (res ExecutionResult, err error) {
	if ec == nil || ec.Code.IsEmpty() {
		return ExecutionResult{}, ErrNoCode
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("interpreter panicked", zap.Any("panic", r))
			res = ExecutionResult{Err: fmt.Sprintf("interpreter panic: %v", r)}
			err = nil
		}
	}()

	capture, runErr := e.interp.Run(ctx, ec)
	if runErr != nil {
		msg := strings.TrimSpace(runErr.Error())
		if msg == "" {
			msg = "execution failed without a description"
		}
		e.logger.Debug("execution failed", zap.String("error", msg))
		return ExecutionResult{Err: msg, Lines: SplitLines(capture.Stdout)}, nil
	}

	res = Partition(SplitLines(capture.Stdout), ec.Plot)
	if ec.Plot {
		res.ChartLink = e.export(ctx, capture.Chart)
	}
	return res, nil
}

func (e *Engine) export(ctx context.Context, png []byte) string {
	if e.exporter == nil || len(png) == 0 {
		e.logger.Warn("chart export skipped", zap.Bool("exporter", e.exporter != nil), zap.Int("bytes", len(png)))
		return NoChartLink
	}
	link, err := e.exporter.Export(ctx, png)
	if err != nil || link == "" {
		if err == nil {
			err = ErrExport
		}
		e.logger.Warn("chart export failed", zap.Error(err))
		return NoChartLink
	}
	return link
}

// Partition splits captured lines into analysis output and the chart
// reference line. With plot set the last line is the chart reference,
// whatever its content; otherwise every line is analysis output.
func Partition(lines []string, plot bool) ExecutionResult {
	res := ExecutionResult{OK: true, Lines: lines}
	out := lines
	if plot && len(lines) > 0 {
		out = lines[:len(lines)-1]
		res.ChartRef = lines[len(lines)-1]
	}
	res.Output = strings.Join(out, "\n")
	return res
}

// SplitLines splits s into lines. A trailing newline does not produce an
// empty final element; an empty string yields no lines.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
