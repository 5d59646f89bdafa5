// Package logger provides named, levelled loggers that write coloured lines
// to a shared output.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	SUCCESS
	WARNING
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "D"
	case INFO:
		return "I"
	case SUCCESS:
		return "✓"
	case WARNING:
		return "!"
	case ERROR:
		return "!!"
	default:
		return "?"
	}
}

func (l Level) color() *color.Color {
	switch l {
	case DEBUG:
		return color.New(color.FgWhite, color.Italic)
	case SUCCESS:
		return color.New(color.FgHiGreen)
	case WARNING:
		return color.New(color.FgYellow)
	case ERROR:
		return color.New(color.FgHiRed, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}

// Logger emits printf-style messages at a level. Implementations must be
// safe for concurrent use.
type Logger interface {
	Emit(Level, string, ...any)
}

type named struct {
	name string
}

func (n *named) Emit(level Level, message string, args ...any) {
	std.emit(level, n.name, message, args...)
}

type manager struct {
	mu     sync.Mutex
	out    io.Writer
	min    Level
	offset int
}

var std = &manager{out: os.Stderr, min: INFO}

// Get returns a logger that prefixes every line with name.
func Get(name string) Logger {
	return &named{name: name}
}

// SetOutput redirects every logger. Nil restores stderr.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	std.out = w
}

// SetLevel sets the minimum level that is written.
func SetLevel(level Level) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.min = level
}

func (m *manager) emit(level Level, name, message string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if level < m.min {
		return
	}

	if len(name) > m.offset {
		m.offset = len(name)
	}
	padding := strings.Repeat(" ", m.offset-len(name))
	line := fmt.Sprintf("[%s] %s(%s) %s", name, padding, level, fmt.Sprintf(message, args...))
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	level.color().Fprint(m.out, line)
}

// Discard drops everything; handy as a default for optional loggers.
var Discard Logger = discard{}

type discard struct{}

func (discard) Emit(Level, string, ...any) {}
