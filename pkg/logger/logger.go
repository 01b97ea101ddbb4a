package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a leveled structured logger backed by zerolog.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr or a file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	tf := cfg.TimeFormat
	if tf == "" {
		tf = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = tf
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: tf}
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	return &Logger{zl: zl}, nil
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", target, err)
	}
	return f, nil
}

// NewWriter logs JSON to w at every level.
func NewWriter(w io.Writer) *Logger {
	return &Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that stamps fields on every event.
func (l *Logger) With(fields ...Field) *Logger {
	c := l.zl.With()
	for _, f := range fields {
		c = f.context(c)
	}
	return &Logger{zl: c.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { write(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { write(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { write(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { write(l.zl.Error(), msg, fields) }

func write(e *zerolog.Event, msg string, fields []Field) {
	// nil when the level is disabled
	if e == nil {
		return
	}
	for _, f := range fields {
		f.event(e)
	}
	e.Msg(msg)
}

type kind uint8

const (
	kindString kind = iota
	kindStrings
	kindInt
	kindFloat
	kindBool
	kindError
	kindAny
)

// Field is one key/value pair attached to a log event.
type Field struct {
	key  string
	kind kind
	str  string
	strs []string
	num  int64
	flt  float64
	err  error
	val  interface{}
}

func (f Field) event(e *zerolog.Event) {
	switch f.kind {
	case kindString:
		e.Str(f.key, f.str)
	case kindStrings:
		e.Strs(f.key, f.strs)
	case kindInt:
		e.Int64(f.key, f.num)
	case kindFloat:
		e.Float64(f.key, f.flt)
	case kindBool:
		e.Bool(f.key, f.num != 0)
	case kindError:
		e.AnErr(f.key, f.err)
	default:
		e.Interface(f.key, f.val)
	}
}

func (f Field) context(c zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString:
		return c.Str(f.key, f.str)
	case kindStrings:
		return c.Strs(f.key, f.strs)
	case kindInt:
		return c.Int64(f.key, f.num)
	case kindFloat:
		return c.Float64(f.key, f.flt)
	case kindBool:
		return c.Bool(f.key, f.num != 0)
	case kindError:
		return c.AnErr(f.key, f.err)
	default:
		return c.Interface(f.key, f.val)
	}
}

func String(key, value string) Field { return Field{key: key, kind: kindString, str: value} }

func Strings(key string, value []string) Field {
	return Field{key: key, kind: kindStrings, strs: value}
}

func Int(key string, value int) Field { return Field{key: key, kind: kindInt, num: int64(value)} }

func Int64(key string, value int64) Field { return Field{key: key, kind: kindInt, num: value} }

func Float64(key string, value float64) Field { return Field{key: key, kind: kindFloat, flt: value} }

func Bool(key string, value bool) Field {
	f := Field{key: key, kind: kindBool}
	if value {
		f.num = 1
	}
	return f
}

// Duration logs whole milliseconds.
func Duration(key string, value time.Duration) Field { return Int64(key, value.Milliseconds()) }

// Error logs err under "error"; a nil err is omitted.
func Error(err error) Field { return Field{key: zerolog.ErrorFieldName, kind: kindError, err: err} }

func Any(key string, value interface{}) Field { return Field{key: key, kind: kindAny, val: value} }
