package python_test

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/python"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requirePandas skips the test unless python3 with pandas and matplotlib is
// installed.
func requirePandas(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(python.DefaultPython); err != nil {
		t.Skip("python3 not installed")
	}
	if err := exec.Command(python.DefaultPython, "-c", "import pandas, numpy, matplotlib").Run(); err != nil {
		t.Skip("pandas, numpy or matplotlib not installed")
	}
}

func sample() *edabot.Dataset {
	return &edabot.Dataset{
		Columns: []string{"a", "b"},
		Rows:    [][]string{{"1", "4"}, {"2", "5"}, {"3", "6"}},
	}
}

func TestExecError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "KeyError: 'z'", (&python.ExecError{ExitCode: 1, Stderr: "KeyError: 'z'"}).Error())
	assert.Equal(t, "python exited with code 2", (&python.ExecError{ExitCode: 2}).Error())
}

func TestInterpreter_Run_NoDataset(t *testing.T) {
	t.Parallel()
	_, err := python.New().Run(context.Background(), edabot.NewExecContext(nil, "result = 1", false))
	assert.ErrorIs(t, err, edabot.ErrNoDataset)
}

func TestInterpreter_Run_MissingBinary(t *testing.T) {
	t.Parallel()
	i := python.New(python.WithPython("/nonexistent/python3"))
	_, err := i.Run(context.Background(), edabot.NewExecContext(sample(), "result = 1", false))
	require.Error(t, err)
	var execErr *python.ExecError
	assert.False(t, errors.As(err, &execErr))
}

func TestInterpreter_Run(t *testing.T) {
	t.Parallel()
	requirePandas(t)

	t.Run("scalar result", func(t *testing.T) {
		t.Parallel()
		c, err := python.New().Run(context.Background(), edabot.NewExecContext(sample(), "result = df['a'].sum()", false))
		require.NoError(t, err)
		assert.Equal(t, "6\n", c.Stdout)
		assert.Nil(t, c.Chart)
	})

	t.Run("string passes through", func(t *testing.T) {
		t.Parallel()
		c, err := python.New().Run(context.Background(), edabot.NewExecContext(sample(), "result = 'no **change**'", false))
		require.NoError(t, err)
		assert.Equal(t, "no **change**\n", c.Stdout)
	})

	t.Run("code output precedes the result", func(t *testing.T) {
		t.Parallel()
		c, err := python.New().Run(context.Background(), edabot.NewExecContext(sample(), "print('hi')\nresult = len(df)", false))
		require.NoError(t, err)
		assert.Equal(t, "hi\n3\n", c.Stdout)
	})

	t.Run("tabular result", func(t *testing.T) {
		t.Parallel()
		c, err := python.New().Run(context.Background(), edabot.NewExecContext(sample(), "result = df.head(2)", false))
		require.NoError(t, err)
		assert.Contains(t, c.Stdout, "a")
		assert.Contains(t, c.Stdout, "5")
		assert.NotContains(t, c.Stdout, "6")
	})

	t.Run("missing result binding", func(t *testing.T) {
		t.Parallel()
		_, err := python.New().Run(context.Background(), edabot.NewExecContext(sample(), "x = 1", false))
		var execErr *python.ExecError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, 1, execErr.ExitCode)
		assert.Contains(t, execErr.Stderr, "NameError")
	})

	t.Run("exception reports the traceback tail", func(t *testing.T) {
		t.Parallel()
		_, err := python.New().Run(context.Background(), edabot.NewExecContext(sample(), "result = df['z']", false))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "KeyError")
	})

	t.Run("clean exit still reports the result", func(t *testing.T) {
		t.Parallel()
		c, err := python.New().Run(context.Background(), edabot.NewExecContext(sample(), "result = df['a'].sum()\nimport sys\nsys.exit(0)", false))
		require.NoError(t, err)
		assert.Equal(t, "6\n", c.Stdout)

		c, err = python.New().Run(context.Background(), edabot.NewExecContext(sample(), "result = len(df)\nexit()", false))
		require.NoError(t, err)
		assert.Equal(t, "3\n", c.Stdout)
	})

	t.Run("non-zero exit is a failure without traceback", func(t *testing.T) {
		t.Parallel()
		_, err := python.New().Run(context.Background(), edabot.NewExecContext(sample(), "import sys\nsys.exit(3)", false))
		var execErr *python.ExecError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, 1, execErr.ExitCode)
		assert.Contains(t, execErr.Stderr, "exited with status 3")
		assert.NotContains(t, execErr.Stderr, "Traceback")
	})

	t.Run("chart probe", func(t *testing.T) {
		t.Parallel()
		code := edabot.CodeUnit("fig, ax = plt.subplots()\nax.plot(df['a'], df['b'])\nplt.show()\nresult = 'plotted'")
		c, err := python.New().Run(context.Background(), edabot.NewExecContext(sample(), code, true))
		require.NoError(t, err)
		assert.Equal(t, "plotted\nchart.png\n", c.Stdout)
		require.NotEmpty(t, c.Chart)
		assert.Equal(t, []byte("\x89PNG"), c.Chart[:4])
	})

	t.Run("chart probe without figure", func(t *testing.T) {
		t.Parallel()
		_, err := python.New().Run(context.Background(), edabot.NewExecContext(sample(), "result = 1", true))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NameError")
	})

	t.Run("timeout kills the process", func(t *testing.T) {
		t.Parallel()
		i := python.New(python.WithTimeout(200 * time.Millisecond))
		start := time.Now()
		_, err := i.Run(context.Background(), edabot.NewExecContext(sample(), "import time\ntime.sleep(30)\nresult = 1", false))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("engine end to end", func(t *testing.T) {
		t.Parallel()
		e := edabot.NewEngine(python.New(), nil)
		res, err := e.Execute(context.Background(), edabot.NewExecContext(sample(), "result = df['a'].sum()", false))
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Equal(t, "6", res.Output)
	})
}
