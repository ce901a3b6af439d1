package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

type Level string

const (
	LevelInfo    Level = "INF"
	LevelWarn    Level = "WRN"
	LevelError   Level = "ERR"
	LevelDebug   Level = "DBG"
	LevelTraffic Level = "TRF"
)

const (
	colorInfo    = "\x1b[90m" // dark gray
	colorWarn    = "\x1b[33m" // yellow
	colorError   = "\x1b[31m" // red
	colorDebug   = "\x1b[36m" // cyan
	colorTraffic = "\x1b[35m" // magenta
	colorAccent  = "\x1b[33m"
	colorReset   = "\x1b[0m"
)

var levelColors = map[Level]string{
	LevelInfo:    colorInfo,
	LevelWarn:    colorWarn,
	LevelError:   colorError,
	LevelDebug:   colorDebug,
	LevelTraffic: colorTraffic,
}

const maxTrafficLen = 2000

// Logger writes one line per call as "[15:04:05 LVL] message".
// Safe for concurrent use.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	logTraffic bool
	useColor   bool
	now        func() time.Time
}

func New(out io.Writer, logTraffic bool, useColor bool) *Logger {
	return &Logger{
		out:        out,
		logTraffic: logTraffic,
		useColor:   useColor,
		now:        time.Now,
	}
}

// Accent highlights a value inside a message when color is on.
func (l *Logger) Accent(text string) string {
	if !l.useColor {
		return text
	}
	return colorAccent + text + colorReset
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, format, args...)
}

// TrafficTx logs an outgoing frame. payload is marshalled to JSON unless it
// is already text.
func (l *Logger) TrafficTx(label string, payload interface{}) {
	if !l.logTraffic {
		return
	}
	var msg string
	switch v := payload.(type) {
	case []byte:
		msg = string(v)
	case string:
		msg = v
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			msg = fmt.Sprintf("<marshal error: %v>", err)
		} else {
			msg = string(data)
		}
	}
	l.logf(LevelTraffic, "TX %s %s", label, truncate(msg))
}

func (l *Logger) TrafficRx(label string, data []byte) {
	if !l.logTraffic {
		return
	}
	l.logf(LevelTraffic, "RX %s %s", label, truncate(string(data)))
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %s\n", l.prefix(level), msg)
}

func (l *Logger) prefix(level Level) string {
	base := fmt.Sprintf("[%s %s]", l.now().Format("15:04:05"), level)
	if !l.useColor {
		return base
	}
	return levelColors[level] + base + colorReset
}

func truncate(msg string) string {
	if len(msg) > maxTrafficLen {
		return msg[:maxTrafficLen] + "...<truncated>"
	}
	return msg
}
