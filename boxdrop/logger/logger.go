package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
)

type LogType string

const (
	TypeCommand LogType = "CMD"
	TypeDB      LogType = "DB"
	TypeSystem  LogType = "SYS"
	TypeDrop    LogType = "DROP"
	TypeError   LogType = "ERR"
)

// CustomHandler renders slog records as colored single-line console output
// with an elapsed-time prefix and a log-type tag derived from the "type"
// attribute.
type CustomHandler struct {
	opts      *slog.HandlerOptions
	startTime time.Time
	attrs     []slog.Attr
	groups    []string
}

func NewHandler(level slog.Level) *CustomHandler {
	return &CustomHandler{
		opts:      &slog.HandlerOptions{Level: level},
		startTime: time.Now(),
		attrs:     make([]slog.Attr, 0),
		groups:    make([]string, 0),
	}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CustomHandler{
		opts:      h.opts,
		startTime: h.startTime,
		attrs:     append(h.attrs, attrs...),
		groups:    h.groups,
	}
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	return &CustomHandler{
		opts:      h.opts,
		startTime: h.startTime,
		attrs:     h.attrs,
		groups:    append(h.groups, name),
	}
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkipLog(&r) {
		return nil
	}

	timeElapsed := time.Since(h.startTime).Milliseconds()
	timestamp := time.Now().Format("15:04:05")

	var levelColor, levelText string
	switch r.Level {
	case slog.LevelDebug:
		levelColor = colorPurple
		levelText = "DEBUG"
	case slog.LevelInfo:
		levelColor = colorGreen
		levelText = "INFO"
	case slog.LevelWarn:
		levelColor = colorYellow
		levelText = "WARN"
	default:
		levelColor = colorRed
		levelText = "ERROR"
	}

	logType := getLogType(&r)

	message := r.Message
	if details := getAttr(&r, "error"); details != "" {
		message = fmt.Sprintf("%s: %s", message, details)
	}

	var extras strings.Builder
	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "type", "error":
			return true
		}
		fmt.Fprintf(&extras, " %s=%v", a.Key, a.Value)
		return true
	})

	fmt.Printf("%s[%s]%s %s[%s]%s %s[+%dms]%s %s%s\n",
		colorCyan, timestamp, colorReset,
		levelColor, levelText, colorReset,
		colorBlue, timeElapsed, colorReset,
		fmt.Sprintf("%s[%s]%s ", colorYellow, logType, colorReset),
		message+extras.String(),
	)

	return nil
}

func getLogType(r *slog.Record) LogType {
	switch getAttr(r, "type") {
	case "cmd":
		return TypeCommand
	case "db":
		return TypeDB
	case "drop":
		return TypeDrop
	case "error":
		return TypeError
	default:
		return TypeSystem
	}
}

func getAttr(r *slog.Record, key string) string {
	var value string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			value = a.Value.String()
			return false
		}
		return true
	})
	return value
}

// shouldSkipLog filters gateway heartbeat chatter that would otherwise
// dominate the console at debug level.
func shouldSkipLog(r *slog.Record) bool {
	msg := strings.ToLower(r.Message)
	return strings.Contains(msg, "heartbeat") || strings.Contains(msg, "sending gateway command")
}
