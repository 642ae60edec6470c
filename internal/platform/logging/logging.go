// Package logging provides the console logger used across the server: a
// coloured slog text handler with per-module tags, plus an optional JSON
// file sink.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config captures logging configuration options.
type Config struct {
	Level string
	Dir   string
	File  string
}

const (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

// moduleColors maps the known log tags to their console colour.
var moduleColors = map[string]string{
	"[BOOT]":    "\x1b[96m",
	"[HTTP]":    "\x1b[95m",
	"[CACHE]":   "\x1b[94m",
	"[HISTORY]": "\x1b[92m",
	"[STORE]":   "\x1b[34m",
	"[AUTH]":    "\x1b[35m",
	"[EVAL]":    "\x1b[36m",
}

type textHandler struct {
	writer *os.File
	level  slog.Level
	mu     sync.Mutex
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	timeStr := r.Time.Format("2006-01-02 15:04:05.000")

	var levelColor, levelStr string
	switch r.Level {
	case slog.LevelDebug:
		levelColor, levelStr = colorDebug, "DEBUG"
	case slog.LevelWarn:
		levelColor, levelStr = colorWarn, "WARN"
	case slog.LevelError:
		levelColor, levelStr = colorError, "ERROR"
	default:
		levelColor, levelStr = colorInfo, "INFO"
	}

	msg := r.Message
	var output string
	if tagColor := tagColorFor(msg); tagColor != "" {
		output = fmt.Sprintf("%s[%s]%s %s[%s]%s %s%s%s",
			colorTime, timeStr, colorReset,
			levelColor, levelStr, colorReset,
			tagColor, msg, colorReset)
	} else {
		output = fmt.Sprintf("%s[%s]%s %s[%s]%s %s",
			colorTime, timeStr, colorReset,
			levelColor, levelStr, colorReset,
			msg)
	}

	if r.NumAttrs() > 0 {
		output += " {"
		r.Attrs(func(a slog.Attr) bool {
			output += fmt.Sprintf(" %s=%v", a.Key, a.Value)
			return true
		})
		output += " }"
	}
	output += "\n"

	_, err := h.writer.WriteString(output)
	return err
}

func (h *textHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *textHandler) WithGroup(string) slog.Handler      { return h }

func tagColorFor(msg string) string {
	for tag, color := range moduleColors {
		if strings.HasPrefix(msg, tag) {
			return color
		}
	}
	return ""
}

// Logger writes coloured text to stdout and, when configured with a log
// directory, JSON records to a file.
type Logger struct {
	textLogger *slog.Logger
	jsonLogger *slog.Logger
	logFile    *os.File
	closeOnce  sync.Once
}

// Default is the fallback logger used when a component receives no logger.
var Default = mustConsole("info")

func mustConsole(level string) *Logger {
	l, _ := New(Config{Level: level})
	return l
}

// ParseLevel converts the configured level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a Logger. A file sink is added only when cfg.Dir is set.
func New(cfg Config) (*Logger, error) {
	level := ParseLevel(cfg.Level)

	logger := &Logger{
		textLogger: slog.New(&textHandler{writer: os.Stdout, level: level}),
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file := cfg.File
		if file == "" {
			file = "server.log"
		}
		f, err := os.OpenFile(filepath.Join(cfg.Dir, file), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logger.logFile = f
		logger.jsonLogger = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return logger, nil
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if len(args) > 0 && strings.Contains(msg, "%") {
		msg = fmt.Sprintf(msg, args...)
	}
	ctx := context.Background()
	l.textLogger.Log(ctx, level, msg)
	if l.jsonLogger != nil {
		l.jsonLogger.Log(ctx, level, msg)
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func formatTag(tag, msg string) string {
	if tag == "" || strings.HasPrefix(msg, "[") {
		return msg
	}
	return fmt.Sprintf("[%s] %s", tag, msg)
}

func (l *Logger) DebugTag(tag, msg string, args ...any) {
	if l == nil {
		return
	}
	l.Debug(formatTag(tag, msg), args...)
}

func (l *Logger) InfoTag(tag, msg string, args ...any) {
	if l == nil {
		return
	}
	l.Info(formatTag(tag, msg), args...)
}

func (l *Logger) WarnTag(tag, msg string, args ...any) {
	if l == nil {
		return
	}
	l.Warn(formatTag(tag, msg), args...)
}

func (l *Logger) ErrorTag(tag, msg string, args ...any) {
	if l == nil {
		return
	}
	l.Error(formatTag(tag, msg), args...)
}

// Slog exposes the structured console logger for integrations that want the
// slog API directly.
func (l *Logger) Slog() *slog.Logger {
	return l.textLogger
}

// Close releases the file sink if one was opened.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.logFile != nil {
			err = l.logFile.Close()
		}
	})
	return err
}
