// Package logger provides a leveled, thread-safe console logger.
//
// All output is prefixed with [HH:MM:SS] timestamps. Color output is enabled
// automatically when the writer is a terminal.
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

const (
	levelTrace = iota
	levelDebug
	levelInfo
	levelWarn
	levelError
)

var levelColors = map[int]*color.Color{
	levelTrace: color.New(color.FgWhite),
	levelDebug: color.New(color.FgCyan),
	levelInfo:  color.New(color.FgGreen),
	levelWarn:  color.New(color.FgYellow),
	levelError: color.New(color.FgRed),
}

var levelTags = map[int]string{
	levelTrace: "TRACE",
	levelDebug: "DEBUG",
	levelInfo:  "INFO",
	levelWarn:  "WARN",
	levelError: "ERROR",
}

// Logger writes leveled log lines to a single writer.
type Logger struct {
	mu       sync.Mutex
	w        io.Writer
	level    int
	useColor bool
}

// New creates a Logger writing to w. If w is nil, messages are discarded.
// Valid levels are trace, debug, info, warn, error (case-insensitive);
// anything else defaults to info.
func New(w io.Writer, level string) *Logger {
	return &Logger{
		w:        w,
		level:    parseLevel(level),
		useColor: isTerminal(w),
	}
}

func parseLevel(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (l *Logger) logf(level int, format string, args ...any) {
	if l == nil || l.w == nil || level < l.level {
		return
	}
	tag := levelTags[level]
	if l.useColor {
		tag = levelColors[level].Sprint(tag)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "[%s] %s %s\n", time.Now().Format("15:04:05"), tag, fmt.Sprintf(format, args...))
}

// Tracef logs at trace level.
func (l *Logger) Tracef(format string, args ...any) { l.logf(levelTrace, format, args...) }

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) { l.logf(levelDebug, format, args...) }

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) { l.logf(levelInfo, format, args...) }

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, args ...any) { l.logf(levelWarn, format, args...) }

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) { l.logf(levelError, format, args...) }
