// Package logger provides the leveled logger used by the server and CLI.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Level represents logging verbosity.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// ParseLevel reads a level name case-insensitively. Unknown names give info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "DEBUG", "TRACE":
		return LevelDebug
	}
	return LevelInfo
}

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelDebug:
		return "DEBUG"
	}
	return "INFO"
}

// Logger provides leveled logging to a writer.
type Logger struct {
	mu    sync.Mutex
	w     io.Writer
	level Level
	color bool
	now   func() time.Time
}

// New creates a logger writing to w. Level prefixes are colored when w is a terminal.
func New(w io.Writer, level Level) *Logger {
	return &Logger{w: w, level: level, color: isTerminal(w), now: time.Now}
}

// NewDefault creates a stderr logger based on the LOG_LEVEL environment variable.
func NewDefault() *Logger {
	return New(os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, LevelError)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return !color.NoColor && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }

// Printf logs at info level so the logger can stand in for *log.Logger.
func (l *Logger) Printf(format string, args ...interface{}) { l.log(LevelInfo, format, args...) }

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level || l.w == nil {
		return
	}
	tag := level.String()
	if l.color {
		tag = levelColor(level).Sprint(tag)
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.w, "%s [%s] %s\n", l.now().Format("2006/01/02 15:04:05"), tag, strings.TrimRight(msg, "\n"))
}

func levelColor(level Level) *color.Color {
	switch level {
	case LevelError:
		return color.New(color.FgRed)
	case LevelWarn:
		return color.New(color.FgYellow)
	case LevelDebug:
		return color.New(color.FgCyan)
	}
	return color.New(color.FgBlue)
}
