// Package logging provides structured logging for the CLI and the interactive browser.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log lines go.
type Options struct {
	// Out receives human-readable console output. Defaults to os.Stderr so
	// stdout stays clean for command results.
	Out io.Writer

	// LogFile, when set, adds a rotating JSON log file.
	LogFile string

	// Component is attached to every line as "component".
	Component string
}

// Logger wraps zerolog with the console/file sinks used by drivectl.
type Logger struct {
	zlog    zerolog.Logger
	output  io.Writer // current console writer
	fileOut *lumberjack.Logger
	opts    Options
}

// NewLogger creates a logger with the given options.
func NewLogger(opts Options) *Logger {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}

	l := &Logger{opts: opts}
	if opts.LogFile != "" {
		l.fileOut = newRotatingFile(opts.LogFile)
	}
	l.rebuild(opts.Out)
	return l
}

// NewDefaultCLILogger creates a default CLI logger writing to stderr.
func NewDefaultCLILogger() *Logger {
	return NewLogger(Options{})
}

// NewComponentLogger creates a stderr logger tagged with a component name.
func NewComponentLogger(component string) *Logger {
	return NewLogger(Options{Component: component})
}

// newRotatingFile returns a size-rotated log file: 10 MB per file,
// 5 backups, 30 days retention, gzip for old files.
func newRotatingFile(path string) *lumberjack.Logger {
	_ = os.MkdirAll(filepath.Dir(path), 0700)
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
}

func (l *Logger) rebuild(console io.Writer) {
	l.output = console

	var w io.Writer = zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: "15:04:05",
	}
	if l.fileOut != nil {
		w = zerolog.MultiLevelWriter(w, l.fileOut)
	}

	ctx := zerolog.New(w).With().Timestamp()
	if l.opts.Component != "" {
		ctx = ctx.Str("component", l.opts.Component)
	}
	l.zlog = ctx.Logger()
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// With creates a child logger context with additional fields.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// SetOutput changes the console writer, e.g. to print above progress bars.
// The log file sink, if any, is kept.
func (l *Logger) SetOutput(w io.Writer) {
	l.rebuild(w)
}

// Output returns the current console writer.
func (l *Logger) Output() io.Writer {
	return l.output
}

// Close flushes and closes the log file, if one is open.
func (l *Logger) Close() error {
	if l.fileOut == nil {
		return nil
	}
	return l.fileOut.Close()
}

// SetVerbose switches between info (default) and debug output.
func SetVerbose(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
