// Package python runs code units in a python3 subprocess with pandas, numpy
// and matplotlib available.
//
// Every Run gets its own temporary directory and its own process, so no
// interpreter state is shared between requests.
package python

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/csv"
)

//go:embed harness.py
var harness []byte

const (
	DefaultPython         = "python3"
	DefaultTimeout        = 60 * time.Second
	DefaultMaxOutputBytes = 1 << 20

	// Traceback tail reported on failure.
	maxErrorLines = 20
	maxErrorBytes = 4 * 1024

	dataFile    = "data.csv"
	codeFile    = "code.py"
	harnessFile = "harness.py"
	chartFile   = "chart.png"
)

// ExecError is returned when the code unit raised. Stderr holds the sanitized
// tail of the traceback.
type ExecError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return fmt.Sprintf("python exited with code %d", e.ExitCode)
}

// Interface compliance check.
var _ edabot.Interpreter = (*Interpreter)(nil)

// Interpreter implements [edabot.Interpreter].
type Interpreter struct {
	python   string
	timeout  time.Duration
	maxBytes int
	logger   *zap.Logger
}

// Option configures an [Interpreter].
type Option func(*Interpreter)

// WithPython sets the interpreter binary.
func WithPython(path string) Option {
	return func(i *Interpreter) { i.python = path }
}

// WithTimeout bounds a single Run.
func WithTimeout(d time.Duration) Option {
	return func(i *Interpreter) { i.timeout = d }
}

// WithMaxOutputBytes caps how much stdout is retained. The tail is kept.
func WithMaxOutputBytes(n int) Option {
	return func(i *Interpreter) { i.maxBytes = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Interpreter) { i.logger = l }
}

// New creates an [Interpreter].
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		python:   DefaultPython,
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxOutputBytes,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Run executes ec.Code against ec.Dataset in a fresh python3 process.
//
// The process prints the result binding after the code and, when ec.Plot is
// set, saves the figure binding and prints the chart file name last. A
// non-zero exit yields an *ExecError; hitting the timeout kills the whole
// process group.
func (i *Interpreter) Run(ctx context.Context, ec *edabot.ExecContext) (edabot.Capture, error) {
	if ec == nil || ec.Dataset == nil {
		return edabot.Capture{}, fmt.Errorf("python: %w", edabot.ErrNoDataset)
	}

	dir, err := os.MkdirTemp("", "edabot-*")
	if err != nil {
		return edabot.Capture{}, fmt.Errorf("python: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := prepare(dir, ec); err != nil {
		return edabot.Capture{}, fmt.Errorf("python: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	plot := "0"
	if ec.Plot {
		plot = "1"
	}
	cmd := osexec.CommandContext(ctx, i.python, harnessFile, dir, ec.ResultBinding, ec.FigureBinding, plot)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"MPLBACKEND=Agg",
		"PYTHONIOENCODING=utf-8",
		"MPLCONFIGDIR="+dir,
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second

	stdout := newTailBuffer(i.maxBytes)
	stderr := newTailBuffer(maxErrorBytes * 4)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	waitErr := cmd.Run()
	elapsed := time.Since(start)

	capture := edabot.Capture{Stdout: Sanitize(stdout.String())}
	i.logger.Debug("python finished",
		zap.Duration("elapsed", elapsed),
		zap.Int64("stdout_bytes", stdout.Total()),
		zap.Bool("stdout_dropped", stdout.Dropped()),
		zap.Error(waitErr))

	if waitErr != nil {
		var exitErr *osexec.ExitError
		realExit := errors.As(waitErr, &exitErr) && exitErr.ExitCode() >= 0
		if !realExit && ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return capture, fmt.Errorf("python: execution timed out after %s", i.timeout)
			}
			return capture, fmt.Errorf("python: %w", ctx.Err())
		}
		if exitErr == nil {
			return capture, fmt.Errorf("python: %w", waitErr)
		}
		tail, _ := TruncateTail(Sanitize(stderr.String()), maxErrorLines, maxErrorBytes)
		return capture, &ExecError{ExitCode: exitErr.ExitCode(), Stderr: tail}
	}

	if ec.Plot {
		png, err := os.ReadFile(filepath.Join(dir, chartFile))
		if err != nil {
			return capture, fmt.Errorf("python: chart not rendered: %w", err)
		}
		capture.Chart = png
	}
	return capture, nil
}

func prepare(dir string, ec *edabot.ExecContext) error {
	f, err := os.Create(filepath.Join(dir, dataFile))
	if err != nil {
		return err
	}
	if err := csv.Write(f, ec.Dataset); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, codeFile), []byte(ec.Code), 0o600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, harnessFile), harness, 0o600)
}
