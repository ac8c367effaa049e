// Package logging builds the service's slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the optional log file.
const (
	maxSizeMB  = 50
	maxBackups = 5
	maxAgeDays = 14
)

// ParseLevel maps debug, info, warn and error to slog levels. Anything
// else is info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// New returns a JSON logger writing to stdout and, when file is set, to a
// rotating log file as well.
func New(level, file string) *slog.Logger {
	return NewTo(os.Stdout, level, file)
}

// NewTo is New with a caller-chosen console writer.
func NewTo(w io.Writer, level, file string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(Writer(w, file), &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// Writer tees w into a lumberjack-rotated file when file is non-empty.
func Writer(w io.Writer, file string) io.Writer {
	if file == "" {
		return w
	}
	return io.MultiWriter(w, &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	})
}
