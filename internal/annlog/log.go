// Package annlog provides leveled logging for annlite components.
//
// It wraps the standard library's log.Logger rather than pulling in a
// structured-logging framework: the reference pkg/storage and
// pkg/config packages log with plain log.Printf-shaped calls, and the
// core library has no opinion about the host process's log sink
// beyond "let the caller redirect it".
package annlog

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Level controls which leveled calls actually write output.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelSilent suppresses all output.
	LevelSilent
)

var (
	logger      = log.New(os.Stderr, "annlite: ", log.LstdFlags)
	level       atomic.Int32
	levelLabels = map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
	}
)

// SetOutput redirects all future log output.
func SetOutput(w io.Writer) { logger.SetOutput(w) }

// SetLevel sets the minimum level that will be written.
func SetLevel(l Level) { level.Store(int32(l)) }

func enabled(l Level) bool { return l >= Level(level.Load()) }

func emit(l Level, format string, args []any) {
	if !enabled(l) {
		return
	}
	logger.Printf("["+levelLabels[l]+"] "+format, args...)
}

func Debugf(format string, args ...any) { emit(LevelDebug, format, args) }
func Infof(format string, args ...any)  { emit(LevelInfo, format, args) }
func Warnf(format string, args ...any)  { emit(LevelWarn, format, args) }
func Errorf(format string, args ...any) { emit(LevelError, format, args) }
