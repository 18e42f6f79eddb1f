package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Leveled logger used across the wiki service.
// - zerolog console output
// - provides Debug/Info/Warn/Error/Fatal variants and Init(level)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu    sync.RWMutex
	base  = newBase(os.Stdout)
	level = LevelInfo
)

func newBase(w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	return zerolog.New(cw).With().Timestamp().Logger()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	s := strings.ToLower(strings.TrimSpace(l))
	switch s {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = newBase(w)
}

func current(l Level) (zerolog.Logger, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return base, l >= level
}

func Debugf(format string, v ...interface{}) {
	if lg, ok := current(LevelDebug); ok {
		lg.Debug().Msgf(format, v...)
	}
}

func Infof(format string, v ...interface{}) {
	if lg, ok := current(LevelInfo); ok {
		lg.Info().Msgf(format, v...)
	}
}

func Warnf(format string, v ...interface{}) {
	if lg, ok := current(LevelWarn); ok {
		lg.Warn().Msgf(format, v...)
	}
}

func Errorf(format string, v ...interface{}) {
	if lg, ok := current(LevelError); ok {
		lg.Error().Msgf(format, v...)
	}
}

// Fatalf always logs and exits with status 1.
func Fatalf(format string, v ...interface{}) {
	lg, _ := current(LevelFatal)
	lg.Fatal().Msgf(format, v...)
}

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	if lg, ok := current(LevelInfo); ok {
		lg.Info().Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
	}
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
