package edabot_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stdoutInterpreter(stdout string, chart []byte) *mock.Interpreter {
	return &mock.Interpreter{
		RunFn: func(ctx context.Context, ec *edabot.ExecContext) (edabot.Capture, error) {
			return edabot.Capture{Stdout: stdout, Chart: chart}, nil
		},
	}
}

func TestEngine_Execute(t *testing.T) {
	t.Parallel()

	t.Run("empty code short-circuits", func(t *testing.T) {
		t.Parallel()
		e := edabot.NewEngine(&mock.Interpreter{}, nil)
		_, err := e.Execute(context.Background(), edabot.NewExecContext(nil, "  \n", false))
		assert.ErrorIs(t, err, edabot.ErrNoCode)
	})

	t.Run("all lines are output without plot", func(t *testing.T) {
		t.Parallel()
		e := edabot.NewEngine(stdoutInterpreter("6\nlast line\n", nil), nil)
		res, err := e.Execute(context.Background(), edabot.NewExecContext(nil, "x", false))
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Equal(t, "6\nlast line", res.Output)
		assert.Empty(t, res.ChartRef)
		assert.Empty(t, res.ChartLink)
	})

	t.Run("last line is chart reference with plot", func(t *testing.T) {
		t.Parallel()
		exporter := &mock.ChartExporter{
			ExportFn: func(ctx context.Context, png []byte) (string, error) {
				assert.Equal(t, []byte("png"), png)
				return "https://i.example/abc.png", nil
			},
		}
		e := edabot.NewEngine(stdoutInterpreter("a b\n1 4\nchart.png\n", []byte("png")), exporter)
		res, err := e.Execute(context.Background(), edabot.NewExecContext(nil, "x", true))
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Equal(t, "a b\n1 4", res.Output)
		assert.Equal(t, "chart.png", res.ChartRef)
		assert.Equal(t, "https://i.example/abc.png", res.ChartLink)
		assert.Len(t, res.Lines, 3)
	})

	t.Run("partition ignores last line content", func(t *testing.T) {
		t.Parallel()
		res := edabot.Partition([]string{"one", "not a link at all"}, true)
		assert.Equal(t, "one", res.Output)
		assert.Equal(t, "not a link at all", res.ChartRef)
	})

	t.Run("export failure degrades to placeholder", func(t *testing.T) {
		t.Parallel()
		exporter := &mock.ChartExporter{
			ExportFn: func(ctx context.Context, png []byte) (string, error) {
				return "", edabot.ErrExport
			},
		}
		e := edabot.NewEngine(stdoutInterpreter("out\nchart.png\n", []byte("png")), exporter)
		res, err := e.Execute(context.Background(), edabot.NewExecContext(nil, "x", true))
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Equal(t, edabot.NoChartLink, res.ChartLink)
	})

	t.Run("missing exporter degrades to placeholder", func(t *testing.T) {
		t.Parallel()
		e := edabot.NewEngine(stdoutInterpreter("chart.png\n", []byte("png")), nil)
		res, err := e.Execute(context.Background(), edabot.NewExecContext(nil, "x", true))
		require.NoError(t, err)
		assert.Equal(t, edabot.NoChartLink, res.ChartLink)
		assert.Empty(t, res.Output)
	})

	t.Run("interpreter error becomes failure result", func(t *testing.T) {
		t.Parallel()
		interp := &mock.Interpreter{
			RunFn: func(ctx context.Context, ec *edabot.ExecContext) (edabot.Capture, error) {
				return edabot.Capture{Stdout: "partial\n"}, errors.New("NameError: name 'result' is not defined")
			},
		}
		e := edabot.NewEngine(interp, nil)
		res, err := e.Execute(context.Background(), edabot.NewExecContext(nil, "x", false))
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.Equal(t, "NameError: name 'result' is not defined", res.Err)
		assert.Equal(t, []string{"partial"}, res.Lines)
	})

	t.Run("blank error still described", func(t *testing.T) {
		t.Parallel()
		interp := &mock.Interpreter{
			RunFn: func(ctx context.Context, ec *edabot.ExecContext) (edabot.Capture, error) {
				return edabot.Capture{}, errors.New("  ")
			},
		}
		res, err := edabot.NewEngine(interp, nil).Execute(context.Background(), edabot.NewExecContext(nil, "x", false))
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.NotEmpty(t, res.Err)
	})

	t.Run("panic is contained", func(t *testing.T) {
		t.Parallel()
		interp := &mock.Interpreter{
			RunFn: func(ctx context.Context, ec *edabot.ExecContext) (edabot.Capture, error) {
				panic("interpreter crashed")
			},
		}
		var res edabot.ExecutionResult
		var err error
		assert.NotPanics(t, func() {
			res, err = edabot.NewEngine(interp, nil).Execute(context.Background(), edabot.NewExecContext(nil, "x", false))
		})
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.Contains(t, res.Err, "interpreter crashed")
	})

	t.Run("passes request-scoped context", func(t *testing.T) {
		t.Parallel()
		ds := sampleDataset()
		interp := &mock.Interpreter{
			RunFn: func(ctx context.Context, ec *edabot.ExecContext) (edabot.Capture, error) {
				assert.Same(t, ds, ec.Dataset)
				assert.Equal(t, edabot.CodeUnit("result = 1"), ec.Code)
				assert.Equal(t, "result", ec.ResultBinding)
				assert.Equal(t, "fig", ec.FigureBinding)
				return edabot.Capture{Stdout: "1\n"}, nil
			},
		}
		_, err := edabot.NewEngine(interp, nil).Execute(context.Background(), edabot.NewExecContext(ds, "result = 1", false))
		require.NoError(t, err)
	})
}

func TestSplitLines(t *testing.T) {
	t.Parallel()
	assert.Nil(t, edabot.SplitLines(""))
	assert.Equal(t, []string{"a"}, edabot.SplitLines("a\n"))
	assert.Equal(t, []string{"a", "", "b"}, edabot.SplitLines("a\n\nb"))
}
