package mock

import (
	"context"

	"github.com/fwojciec/edabot"
)

// Interface compliance checks.
var (
	_ edabot.Interpreter   = (*Interpreter)(nil)
	_ edabot.ChartExporter = (*ChartExporter)(nil)
)

// Interpreter is a test double for edabot.Interpreter.
type Interpreter struct {
	RunFn func(ctx context.Context, ec *edabot.ExecContext) (edabot.Capture, error)
}

// Run delegates to RunFn.
func (i *Interpreter) Run(ctx context.Context, ec *edabot.ExecContext) (edabot.Capture, error) {
	return i.RunFn(ctx, ec)
}

// ChartExporter is a test double for edabot.ChartExporter.
type ChartExporter struct {
	ExportFn func(ctx context.Context, png []byte) (string, error)
}

// Export delegates to ExportFn.
func (e *ChartExporter) Export(ctx context.Context, png []byte) (string, error) {
	return e.ExportFn(ctx, png)
}
