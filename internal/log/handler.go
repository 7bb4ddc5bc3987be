// Package log provides the slog handler used for diagnostic output.
//
// Diagnostics are separate from the combination transcript: the transcript
// is the product of a run and goes to standard output, while this handler
// writes operator-facing diagnostics (configuration, worker pools, file
// digests) to standard error.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// ColorMode selects how much color the handler may use.
type ColorMode int

const (
	// ColorNone emits plain text with a level prefix.
	ColorNone ColorMode = iota
	// Color16 uses the basic ANSI palette.
	Color16
	// Color256 uses the extended 256-color palette.
	Color256
)

// SuccessKey marks a record as reporting a completed operation. Records
// carrying this attribute render in green instead of the level color.
const SuccessKey = "_success"

// Success returns the attribute that flags a record as a success message.
func Success() slog.Attr {
	return slog.Bool(SuccessKey, true)
}

// detectColorMode inspects TERM to decide the color capability of the
// attached terminal. Pipes and dumb terminals get plain output.
func detectColorMode() ColorMode {
	term := os.Getenv("TERM")
	switch {
	case term == "" || term == "dumb":
		return ColorNone
	case strings.Contains(term, "256color"):
		return Color256
	default:
		return Color16
	}
}

type colorSet struct {
	level   string
	key     string
	success string
	errval  string
}

var colors16 = colorSet{
	level:   "\033[1m",
	key:     "\033[36m",
	success: "\033[32m",
	errval:  "\033[31m",
}

var colors256 = colorSet{
	level:   "\033[1m",
	key:     "\033[38;5;30m",
	success: "\033[38;5;35m",
	errval:  "\033[38;5;160m",
}

const colorReset = "\033[0m"

// Handler renders slog records as single lines of prefixed key=value text.
type Handler struct {
	w         io.Writer
	level     slog.Leveler
	attrs     []slog.Attr
	group     string
	colorMode ColorMode
	mu        *sync.Mutex
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler creates a Handler writing to w, with terminal colors chosen
// from the TERM environment variable.
func NewHandler(w io.Writer, level slog.Leveler) *Handler {
	return &Handler{
		w:         w,
		level:     level,
		colorMode: detectColorMode(),
		mu:        &sync.Mutex{},
	}
}

// Enabled reports whether records at the given level are emitted.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func levelPrefix(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error:"
	case level >= slog.LevelWarn:
		return "warning:"
	case level >= slog.LevelInfo:
		return "info:"
	default:
		return "debug:"
	}
}

// Handle writes one record as a single line. In color modes the level prefix
// is dropped and the message is tinted by level instead; in ColorNone the
// line starts with a textual level prefix.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder

	success := false
	collect := make([]slog.Attr, 0, record.NumAttrs()+len(h.attrs))
	collect = append(collect, h.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == SuccessKey {
			success = true
			return true
		}
		collect = append(collect, a)
		return true
	})

	var cs colorSet
	switch h.colorMode {
	case Color16:
		cs = colors16
	case Color256:
		cs = colors256
	}

	if h.colorMode == ColorNone {
		b.WriteString(levelPrefix(record.Level))
		b.WriteString(" ")
		b.WriteString(record.Message)
	} else {
		msgColor := cs.level
		switch {
		case success:
			msgColor = cs.success
		case record.Level >= slog.LevelError:
			msgColor = cs.errval
		}
		b.WriteString(msgColor)
		b.WriteString(record.Message)
		b.WriteString(colorReset)
	}

	for _, a := range collect {
		b.WriteString(" ")
		h.appendAttr(&b, cs, a)
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) appendAttr(b *strings.Builder, cs colorSet, a slog.Attr) {
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	if h.colorMode != ColorNone {
		b.WriteString(cs.key)
	}
	b.WriteString(key)
	b.WriteString("=")
	if h.colorMode != ColorNone {
		b.WriteString(colorReset)
	}

	val := a.Value.Resolve()
	switch {
	case val.Kind() == slog.KindAny:
		if _, isErr := val.Any().(error); isErr {
			if h.colorMode != ColorNone {
				fmt.Fprintf(b, "%s%q%s", cs.errval, val.String(), colorReset)
			} else {
				fmt.Fprintf(b, "%q", val.String())
			}
			return
		}
		fmt.Fprintf(b, "%q", val.String())
	case val.Kind() == slog.KindString:
		fmt.Fprintf(b, "%q", val.String())
	default:
		b.WriteString(val.String())
	}
}

// WithAttrs returns a handler that adds the given attributes to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup returns a handler that prefixes attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}
