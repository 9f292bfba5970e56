// Package log is a thin structured-logging facade over zerolog. Call
// sites pass a message plus alternating key/value pairs.
package log

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger     zerolog.Logger
	loggerOnce sync.Once
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger().Level(zerolog.InfoLevel)
	})
}

// SetLevel adjusts the minimum level; unknown names are ignored.
func SetLevel(level string) {
	initLogger()
	if l, err := zerolog.ParseLevel(level); err == nil {
		logger = logger.Level(l)
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	emit(logger.Debug(), msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	emit(logger.Info(), msg, kv...)
}

func Warn(msg string, kv ...any) {
	initLogger()
	emit(logger.Warn(), msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	emit(logger.Error().Err(err), msg, kv...)
}

// emit attaches the key/value pairs to the event. Keys must be
// strings; a non-string key skips the pair, and a trailing odd value is
// ignored.
func emit(ev *zerolog.Event, msg string, kv ...any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
