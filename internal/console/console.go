// Package console produces the combination transcript: timestamped,
// indented progress lines that narrate a combination session. The transcript
// is the primary output of a run and is kept apart from diagnostic logging.
//
// Indentation tracks the nesting of the work being reported. The current
// level can be saved and restored around a sub-operation so the caller's
// indentation survives whatever the sub-operation did to it.
package console

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const indentSize = 5

// Sink receives finished transcript lines. Implementations decide where
// lines go: standard output for command line runs, a channel into the
// interactive view otherwise.
type Sink interface {
	Line(text string)
}

// Console formats transcript lines and tracks the indentation level.
// It is not safe for concurrent use; a session writes from one goroutine.
type Console struct {
	// Now supplies the timestamp for each line. Tests replace it with a
	// fixed clock.
	Now func() time.Time

	sink  Sink
	level int
	stack []int
}

// New returns a console delivering lines to sink.
func New(sink Sink) *Console {
	return &Console{Now: time.Now, sink: sink}
}

// Message emits one line, adjusting the indentation level by levelChange
// before printing. levelChange must be -1, 0, or +1.
func (c *Console) Message(text string, levelChange int) {
	c.level += levelChange
	c.emit(text)
}

// TempMessage emits one line like Message but restores the previous
// indentation level immediately afterwards.
func (c *Console) TempMessage(text string, levelChange int) {
	c.level += levelChange
	c.emit(text)
	c.level -= levelChange
}

func (c *Console) emit(text string) {
	indent := (c.level - 1) * indentSize
	if indent < 0 {
		indent = 0
	}
	c.sink.Line(c.Now().Format("15:04:05") + " " + strings.Repeat(" ", indent) + text)
}

// PushLevel saves the current indentation level on a stack.
func (c *Console) PushLevel() {
	c.stack = append(c.stack, c.level)
}

// PopLevel restores the most recently saved indentation level.
func (c *Console) PopLevel() {
	if len(c.stack) == 0 {
		return
	}
	c.level = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

// StackSize returns the number of saved levels. A balanced operation should
// leave it where it found it.
func (c *Console) StackSize() int {
	return len(c.stack)
}

// PrintSink writes transcript lines to a writer, one line each.
type PrintSink struct {
	W io.Writer
}

// Line implements Sink.
func (p PrintSink) Line(text string) {
	fmt.Fprintln(p.W, text)
}

// ChannelSink forwards transcript lines over a channel so another goroutine
// can display them.
type ChannelSink chan string

// Line implements Sink.
func (c ChannelSink) Line(text string) {
	c <- text
}
