// Package log is the process-wide zerolog logger. Message text and record
// content are never logged; callers log sizes, ids and phases instead.
package log

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger     zerolog.Logger
	loggerLock sync.RWMutex
)

func init() {
	logger = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

// Setup replaces the logger. Development environments get console output on
// w; everything else gets JSON lines.
func Setup(env, level string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	out := w
	if env != "production" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()
	loggerLock.Lock()
	logger = l
	loggerLock.Unlock()
}

// SetLevel changes the level at runtime.
func SetLevel(level string) {
	loggerLock.Lock()
	logger = logger.Level(parseLevel(level))
	loggerLock.Unlock()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func current() *zerolog.Logger {
	loggerLock.RLock()
	defer loggerLock.RUnlock()
	l := logger
	return &l
}

func Debug() *zerolog.Event { return current().Debug() }
func Info() *zerolog.Event  { return current().Info() }
func Warn() *zerolog.Event  { return current().Warn() }
func Error() *zerolog.Event { return current().Error() }

// Logger returns a copy of the underlying logger.
func Logger() zerolog.Logger { return *current() }

// WithSession returns a child logger carrying the given session id.
func WithSession(id string) zerolog.Logger {
	return current().With().Str("session_id", id).Logger()
}

type zerologWriter struct{}

func (zerologWriter) Write(p []byte) (int, error) {
	Warn().Msg(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// StdErrorLogger adapts the logger for http.Server.ErrorLog.
func StdErrorLogger() *stdlog.Logger {
	return stdlog.New(zerologWriter{}, "", 0)
}
