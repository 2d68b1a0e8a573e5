package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultTailSize = 4096

// Runner runs one external command to completion.
type Runner interface {
	Run(ctx context.Context, command *Cmd) (*Result, error)
}

type Result struct {
	ExitCode int
	Stderr   string
	Duration time.Duration
}

// ExitError is returned when the command could not start or exited non-zero.
type ExitError struct {
	Binary string
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Binary, e.Code)
	if last := lastLine(e.Stderr); last != "" {
		msg += ": " + last
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

type Executor struct {
	logger   *log.Entry
	tailSize int
}

func NewExecutor(logger *log.Entry) *Executor {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Executor{logger: logger, tailSize: defaultTailSize}
}

func (e *Executor) Run(ctx context.Context, command *Cmd) (*Result, error) {
	logger := e.logger.WithField("binary", command.Binary)
	logger.Debug("> " + command.String())

	start := time.Now()
	tail := newTailBuffer(e.tailSize)
	lines := newLineWriter(func(line string) {
		if command.watch != nil {
			command.watch(line)
		}
	})

	cmd := exec.CommandContext(ctx, command.Binary, command.Command()...)
	cmd.Stdout = logger.WriterLevel(log.DebugLevel)
	cmd.Stderr = io.MultiWriter(tail, lines)
	err := cmd.Run()
	lines.Flush()

	if w, ok := cmd.Stdout.(io.Closer); ok {
		_ = w.Close()
	}

	res := &Result{Stderr: tail.String(), Duration: time.Since(start)}
	logger = logger.WithField("duration", res.Duration)

	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}

		logger.WithError(err).Debug("command failed")
		return res, &ExitError{Binary: command.Binary, Code: res.ExitCode, Stderr: res.Stderr, Err: err}
	}

	logger.Debug("command finished")

	return res, nil
}

// Cmd is an external command line assembled argument by argument.
type Cmd struct {
	Binary string
	args   []string
	watch  func(line string)
}

func (c *Cmd) Add(args ...string) {
	c.args = append(c.args, args...)
}

// Watch registers a callback receiving every stderr line, split on either
// newline or carriage return.
func (c *Cmd) Watch(fn func(line string)) {
	c.watch = fn
}

func (c *Cmd) Command() []string {
	return c.args
}

func (c *Cmd) String() string {
	return strings.TrimSpace(c.Binary + " " + strings.Join(c.Command(), " "))
}

type tailBuffer struct {
	mu   sync.Mutex
	size int
	buf  []byte
}

func newTailBuffer(size int) *tailBuffer {
	return &tailBuffer{size: size}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.size; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	emit func(string)
}

func newLineWriter(emit func(string)) *lineWriter {
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, c := range p {
		if c == '\n' || c == '\r' {
			w.flushLocked()
			continue
		}
		w.buf.WriteByte(c)
	}
	return len(p), nil
}

func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

func (w *lineWriter) flushLocked() {
	if w.buf.Len() == 0 {
		return
	}
	line := w.buf.String()
	w.buf.Reset()
	w.emit(line)
}

func lastLine(s string) string {
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
