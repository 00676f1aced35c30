// Package logging builds the zap logger used by every bbl2bib command.
//
// Two layouts are produced with zap's console encoder:
//
//	INFO: Processing: refs.bbl -> refs.bib                        (default)
//	14:03:27 - DEBUG - bbl2bib - Processing: refs.bbl -> refs.bib (verbose)
//
// Levels are spelled like the classic CLI output (WARNING rather than WARN)
// and are colourised only when the destination is a terminal.
package logging

import (
	"io"

	"github.com/moby/term"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Name is the logger name shown in verbose output.
const Name = "bbl2bib"

// timeLayout matches the HH:MM:SS timestamps of verbose output.
const timeLayout = "15:04:05"

// Options controls logger construction.
type Options struct {
	// Verbose enables debug level and the timestamped layout.
	Verbose bool

	// Color wraps level names in ANSI colour codes.
	Color bool
}

// New returns a logger writing to out.
func New(out io.Writer, opts Options) *zap.Logger {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		EncodeLevel:      levelEncoder(opts.Color),
		ConsoleSeparator: ": ",
	}
	if opts.Verbose {
		encCfg.TimeKey = "time"
		encCfg.NameKey = "logger"
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
		encCfg.EncodeName = zapcore.FullNameEncoder
		encCfg.ConsoleSeparator = " - "
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(out)),
		level,
	)
	return zap.New(core).Named(Name)
}

// IsTerminal reports whether v is a file descriptor attached to a terminal.
// Non-file values (buffers in tests, pipes wrapped in other writers) are not.
func IsTerminal(v any) bool {
	_, isTerminal := term.GetFdInfo(v)
	return isTerminal
}

// levelNames spells out levels the way the classic CLI output does.
var levelNames = map[zapcore.Level]string{
	zapcore.DebugLevel:  "DEBUG",
	zapcore.InfoLevel:   "INFO",
	zapcore.WarnLevel:   "WARNING",
	zapcore.ErrorLevel:  "ERROR",
	zapcore.DPanicLevel: "CRITICAL",
	zapcore.PanicLevel:  "CRITICAL",
	zapcore.FatalLevel:  "CRITICAL",
}

// levelColors are ANSI SGR codes per level.
var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel: "36", // cyan
	zapcore.InfoLevel:  "32", // green
	zapcore.WarnLevel:  "33", // yellow
	zapcore.ErrorLevel: "31", // red
}

func levelEncoder(color bool) zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		name, ok := levelNames[l]
		if !ok {
			name = l.CapitalString()
		}
		if code, ok := levelColors[l]; ok && color {
			name = "\x1b[" + code + "m" + name + "\x1b[0m"
		}
		enc.AppendString(name)
	}
}
