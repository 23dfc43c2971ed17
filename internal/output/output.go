// Package output writes console messages for fixnames: verbose traces,
// warnings, errors and a progress line on terminals.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// WarningPrefix starts every warning line.
const WarningPrefix = "WARNING: "

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	Quiet     bool      // Suppress Info messages
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Warning and error destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
}

// Output handles formatted output with verbose and progress support.
// It is safe for concurrent use.
type Output struct {
	config Config

	mu              sync.Mutex
	progressActive  bool
	progressCurrent int
	warnings        int
	errors          int
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{config: config}
}

// DefaultConfig returns a Config writing to stdout/stderr with TTY detection.
func DefaultConfig() Config {
	return Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Discard returns an Output that drops everything but still counts warnings.
func Discard() *Output {
	return New(Config{Writer: io.Discard, ErrWriter: io.Discard})
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	o.write(o.config.Writer, "", format, args...)
}

// Info prints an informational message unless quiet.
func (o *Output) Info(format string, args ...interface{}) {
	if o.config.Quiet {
		return
	}
	o.write(o.config.Writer, "", format, args...)
}

// Warn prints a warning to stderr and counts it.
func (o *Output) Warn(format string, args ...interface{}) {
	o.mu.Lock()
	o.warnings++
	o.mu.Unlock()
	o.write(o.config.ErrWriter, WarningPrefix, format, args...)
}

// Error prints an error message to stderr and counts it.
func (o *Output) Error(format string, args ...interface{}) {
	o.mu.Lock()
	o.errors++
	o.mu.Unlock()
	o.write(o.config.ErrWriter, "", format, args...)
}

// Warnings returns the number of warnings printed so far.
func (o *Output) Warnings() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.warnings
}

// Errors returns the number of errors printed so far.
func (o *Output) Errors() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errors
}

func (o *Output) write(w io.Writer, prefix, format string, args ...interface{}) {
	msg := prefix + fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.clearProgressLocked()
	fmt.Fprint(w, msg)
}

// clearProgressLocked blanks the progress line; the caller holds mu.
func (o *Output) clearProgressLocked() {
	if o.progressActive && o.config.IsTTY {
		fmt.Fprint(o.config.Writer, "\r"+strings.Repeat(" ", 60)+"\r")
	}
}

// progressEnabled reports whether a progress line may be drawn.
func (o *Output) progressEnabled() bool {
	return o.config.IsTTY && !o.config.Verbose && !o.config.Quiet
}

// StartProgress begins a progress indicator session. The walk does not know
// the entry count in advance, so the line shows a running count.
func (o *Output) StartProgress() {
	if !o.progressEnabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progressActive = true
	o.progressCurrent = 0
}

// UpdateProgress redraws the progress line in place.
func (o *Output) UpdateProgress(current int, dir string) {
	if !o.progressEnabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.progressActive {
		return
	}
	o.progressCurrent = current
	line := fmt.Sprintf("\rChecked %d entries...", current)
	if dir != "" {
		line = fmt.Sprintf("\rChecked %d entries (%s)", current, truncate(dir, 30))
	}
	fmt.Fprint(o.config.Writer, line)
}

// EndProgress clears the progress indicator.
func (o *Output) EndProgress() {
	if !o.progressEnabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.progressActive {
		return
	}
	o.clearProgressLocked()
	o.progressActive = false
}

// IsVerbose returns whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

// IsTTY returns whether the output is a terminal.
func (o *Output) IsTTY() bool {
	return o.config.IsTTY
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "..." + string(r[len(r)-n+3:])
}
