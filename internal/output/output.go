// Package output provides formatted output utilities for the CLI.
//
// A single Writer is shared by every lane of a run. All methods hold the
// writer's mutex while printing, so lines coming from parallel lanes never
// interleave mid-line.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// Writer handles CLI output formatting.
type Writer struct {
	mu      sync.Mutex
	out     io.Writer
	err     io.Writer
	color   bool
	verbose bool
}

// New creates a new Writer with default settings.
func New() *Writer {
	return &Writer{
		out:   os.Stdout,
		err:   os.Stderr,
		color: shouldUseColor(),
	}
}

// NewWithWriters creates a Writer with custom io.Writers (for testing).
func NewWithWriters(out, err io.Writer, color bool) *Writer {
	return &Writer{
		out:   out,
		err:   err,
		color: color,
	}
}

// SetVerbose enables or disables verbose mode.
func (w *Writer) SetVerbose(verbose bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.verbose = verbose
}

// Verbose reports whether verbose mode is on.
func (w *Writer) Verbose() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.verbose
}

// Print writes to stdout.
func (w *Writer) Print(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format, args...)
}

// Println writes a line to stdout.
func (w *Writer) Println(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.println(format, args...)
}

func (w *Writer) println(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

func (w *Writer) errorln(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format+"\n", args...)
}

// Debug prints a diagnostic message, only in verbose mode.
func (w *Writer) Debug(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.verbose {
		return
	}
	if w.color {
		w.println(dim+format+reset, args...)
	} else {
		w.println(format, args...)
	}
}

// Warning prints a warning message.
func (w *Writer) Warning(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.color {
		w.errorln(yellow+"warning: "+format+reset, args...)
	} else {
		w.errorln("warning: "+format, args...)
	}
}

// ErrorPrefix prints an error message with squishrun prefix to stderr.
func (w *Writer) ErrorPrefix(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.errorln("%ssquishrun:%s %s", red, reset, msg)
	} else {
		w.errorln("squishrun: %s", msg)
	}
}

// Status prints the one-line result of a single test attempt, e.g. "[OK  ] tst_login".
func (w *Writer) Status(tag, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.color {
		w.println("%s%s%s %s", tagColor(tag), tag, reset, name)
	} else {
		w.println("%s %s", tag, name)
	}
}

// Skip prints a skipped test with its reason.
func (w *Writer) Skip(name, reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.color {
		w.println("%s[SKIP]%s %s (%s)", yellow, reset, name, reason)
	} else {
		w.println("[SKIP] %s (%s)", name, reason)
	}
}

// Block prints captured process output verbatim. The blocks passed in one call
// are printed together, without output from other lanes in between.
func (w *Writer) Block(blocks ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range blocks {
		fmt.Fprintln(w.out, strings.TrimRight(b, "\n"))
	}
}

// Section prints a section header.
func (w *Writer) Section(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.println("")
	if w.color {
		w.println("%s%s:%s", bold, title, reset)
	} else {
		w.println("%s:", title)
	}
}

// List prints a list of items.
func (w *Writer) List(items []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, item := range items {
		w.println("%s", item)
	}
}

// Table prints a table.
func (w *Writer) Table(headers []string, rows [][]string) {
	t := table.NewWriter()
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		t.AppendRow(r)
	}
	if w.color {
		t.SetStyle(table.StyleColoredDark)
	} else {
		t.SetStyle(table.StyleLight)
	}

	rendered := t.Render()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.println("%s", rendered)
}

// FinalSuccess prints a final success message.
func (w *Writer) FinalSuccess(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.println("%s%s%s", green, msg, reset)
	} else {
		w.println("%s", msg)
	}
}

// SummaryFailed prints a labeled list of failed items.
func (w *Writer) SummaryFailed(label, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.color {
		w.println("%s: %s%s%s", label, red, value, reset)
	} else {
		w.println("%s: %s", label, value)
	}
}

// SummaryFlaky prints a labeled list of flaky items.
func (w *Writer) SummaryFlaky(label, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.color {
		w.println("%s: %s%s%s", label, yellow, value, reset)
	} else {
		w.println("%s: %s", label, value)
	}
}

// Hint prints a hint message for the user.
func (w *Writer) Hint(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.println("%s%s%s", dim, msg, reset)
	} else {
		w.println("%s", msg)
	}
}

// shouldUseColor returns true if stdout is a terminal and NO_COLOR is unset.
func shouldUseColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// tagColor picks the color of a status tag.
func tagColor(tag string) string {
	switch {
	case strings.Contains(tag, "XOK"), strings.Contains(tag, "XFAIL"):
		return yellow
	case strings.Contains(tag, "FAIL"):
		return red
	case strings.Contains(tag, "OK"):
		return green
	default:
		return ""
	}
}

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// Semantic color roles for help output.
const (
	colorTitle       = bold + cyan
	colorSection     = bold + yellow
	colorPlaceholder = green
	colorFlag        = yellow
	colorDescription = dim
	colorExample     = cyan
	colorEnvVar      = yellow
)

// HelpTitle formats the main help title line.
func (w *Writer) HelpTitle(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.color {
		w.println("%s%s%s", colorTitle, title, reset)
	} else {
		w.println("%s", title)
	}
}

// HelpSection formats a section header (e.g., "Options:").
func (w *Writer) HelpSection(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.println("")
	if w.color {
		w.println("%s%s%s", colorSection, title, reset)
	} else {
		w.println("%s", title)
	}
}

// HelpFlag formats a flag with its description.
func (w *Writer) HelpFlag(name, description string, width int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.color {
		coloredName := colorPlaceholders(name)
		padding := width - len(name)
		if padding < 0 {
			padding = 0
		}
		w.println("  %s%s%s%s  %s%s%s", colorFlag, coloredName, reset, strings.Repeat(" ", padding), colorDescription, description, reset)
	} else {
		w.println("  %-*s  %s", width, name, description)
	}
}

// HelpExample formats an example command with description.
func (w *Writer) HelpExample(command, description string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.color {
		w.println("  %s%s%s", colorExample, command, reset)
		if description != "" {
			w.println("      %s%s%s", colorDescription, description, reset)
		}
	} else {
		w.println("  %s", command)
		if description != "" {
			w.println("      %s", description)
		}
	}
}

// HelpUsage formats usage lines.
func (w *Writer) HelpUsage(usage string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.color {
		w.println("  %s", colorPlaceholders(usage))
	} else {
		w.println("  %s", usage)
	}
}

// HelpEnvVar formats an environment variable.
func (w *Writer) HelpEnvVar(name, description string, width int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.color {
		w.println("  %s%-*s%s  %s%s%s", colorEnvVar, width, name, reset, colorDescription, description, reset)
	} else {
		w.println("  %-*s  %s", width, name, description)
	}
}

// colorPlaceholders highlights <placeholder> patterns in text.
func colorPlaceholders(text string) string {
	var result strings.Builder
	i := 0
	for i < len(text) {
		if text[i] == '<' {
			end := strings.Index(text[i:], ">")
			if end != -1 {
				placeholder := text[i : i+end+1]
				result.WriteString(reset)
				result.WriteString(colorPlaceholder)
				result.WriteString(placeholder)
				result.WriteString(reset)
				i += end + 1
				continue
			}
		}
		result.WriteByte(text[i])
		i++
	}
	return result.String()
}
