// Package execx runs the external collaborators (sqlcmd, bcp, tar). One
// primitive covers every call site: the capture mode is derived from the
// configured log level once, so callers never branch on verbosity.
package execx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"sqlporter/internal/console"

	"github.com/kballard/go-shellquote"
)

// CaptureMode decides where a subprocess's combined output goes.
type CaptureMode int

const (
	// ModeCapture buffers output and persists it to the log file.
	ModeCapture CaptureMode = iota
	// ModeStream relays output live to the console and the log file.
	ModeStream
	// ModeDiscard drops output entirely (capture with no log path).
	ModeDiscard
)

// ModeForLevel maps the configured verbosity onto a capture mode: Trace
// streams, everything below captures.
func ModeForLevel(l console.Level) CaptureMode {
	if l >= console.LevelTrace {
		return ModeStream
	}
	return ModeCapture
}

// Result is the outcome of one subprocess run. A non-zero exit code is
// data, not an error: the error return of Run is reserved for failures
// to launch the command at all.
type Result struct {
	ExitCode int
	Output   []byte
	TimedOut bool
}

// Runner executes external commands on behalf of the pipeline stages.
type Runner struct {
	Log *console.Logger
}

// Run executes name with args. Output handling follows mode:
//
//   - ModeStream: output goes to the console live, and to logPath too
//     when one is given.
//   - ModeCapture: output is buffered into the Result and written to
//     logPath (discarded when logPath is empty).
//   - ModeDiscard: output is dropped.
//
// The returned error is non-nil only when the command could not be
// started (not found, permission); exit status travels in the Result.
func (r *Runner) Run(description, logPath string, mode CaptureMode, name string, args ...string) (Result, error) {
	r.Log.Debugf("%s", description)
	r.Log.Tracef("exec: %s", shellquote.Join(append([]string{name}, args...)...))

	cmd := exec.Command(name, args...)

	var buf bytes.Buffer
	var logFile *os.File

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			r.Log.Warnf("cannot open log file %s: %v (output will not be persisted)", logPath, err)
		} else {
			logFile = f
			defer logFile.Close()
		}
	}

	switch mode {
	case ModeStream:
		sinks := []io.Writer{os.Stdout}
		if logFile != nil {
			sinks = append(sinks, logFile)
		}
		w := io.MultiWriter(sinks...)
		cmd.Stdout = w
		cmd.Stderr = w
	case ModeCapture:
		sinks := []io.Writer{&buf}
		if logFile != nil {
			sinks = append(sinks, logFile)
		}
		w := io.MultiWriter(sinks...)
		cmd.Stdout = w
		cmd.Stderr = w
	case ModeDiscard:
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
	}

	err := cmd.Run()
	res := Result{Output: buf.Bytes()}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("running %s: %w", name, err)
	}
	return res, nil
}

// Tail returns the last n lines of captured output, for surfacing a
// bounded excerpt of a failed command's log below Trace verbosity.
func Tail(output []byte, n int) string {
	if n <= 0 || len(output) == 0 {
		return ""
	}
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
