package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var Log zerolog.Logger = zerolog.New(io.Discard)

// Init builds the global logger for env. Development gets a console writer
// with caller info, test discards everything, anything else writes JSON.
func Init(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond

	var w io.Writer = os.Stdout
	switch env {
	case "test":
		Log = zerolog.New(io.Discard)
		return
	case "development":
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		Log = zerolog.New(w).With().Timestamp().Caller().Logger()
		return
	}
	Log = zerolog.New(w).With().Timestamp().Str("service", "commit-backend").Logger()
}

// SetLevel applies a textual level ("debug", "warn", ...). Unknown values
// leave the current level untouched and report false.
func SetLevel(level string) bool {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return false
	}
	Log = Log.Level(lvl)
	return true
}

// WithUser returns a child logger tagged with the acting user.
func WithUser(userID string) zerolog.Logger {
	return Log.With().Str("user_id", userID).Logger()
}

func Info() *zerolog.Event  { return Log.Info() }
func Error() *zerolog.Event { return Log.Error() }
func Warn() *zerolog.Event  { return Log.Warn() }
func Debug() *zerolog.Event { return Log.Debug() }
func Fatal() *zerolog.Event { return Log.Fatal() }
