// Package logging sets up the application logger.
package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB  = 5
	maxBackups = 3
)

// Options configures New.
type Options struct {
	// Path is the log file. Empty disables file output.
	Path string

	// Debug lowers the level to debug and copies records to Stderr.
	Debug bool

	Stderr io.Writer
}

// New builds a text logger writing to a rotated file. The returned closer
// releases the file; it is safe to call when no file was opened.
func New(opts Options) (*slog.Logger, io.Closer) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.Path != "" {
		file := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		}
		writers = append(writers, file)
		closer = file
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
		if opts.Stderr != nil {
			writers = append(writers, opts.Stderr)
		}
	}

	if len(writers) == 0 {
		return Discard(), closer
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler), closer
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
