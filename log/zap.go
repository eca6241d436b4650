package log

import (
	"errors"
	"io"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

type Option = zap.Option

var (
	WithCaller    = zap.WithCaller
	AddCallerSkip = zap.AddCallerSkip
	AddStacktrace = zap.AddStacktrace
)

var ErrNoFilter = errors.New("logger has no filter")

type loggerConfig struct {
	filter atomic.Pointer[zapfilter.FilterFunc]
}

func (c *loggerConfig) match(entry zapcore.Entry, fields []zapcore.Field) bool {
	return (*c.filter.Load())(entry, fields)
}

// New creates a json logger writing to writer.
func New(writer io.Writer, level Level, opts ...Option) *Logger {
	return newLogger(writer, level, jsonEncoder(), nil, opts...)
}

// DevLogger creates a console logger intended for local development.
func DevLogger(writer io.Writer, level Level, opts ...Option) *Logger {
	return newLogger(writer, level, consoleEncoder(), nil, opts...)
}

// NewWithFilter creates a logger whose entries are additionally matched
// against zapfilter rules (for example "info+:* debug+:race.engine*").
//
//nolint:whitespace // editor/linter issue
func NewWithFilter(
	writer io.Writer,
	level Level,
	format string,
	rules string,
	opts ...Option,
) (*Logger, error) {
	filter, err := zapfilter.ParseRules(rules)
	if err != nil {
		return nil, err
	}
	enc := jsonEncoder()
	if format != "json" {
		enc = consoleEncoder()
	}
	cfg := &loggerConfig{}
	cfg.filter.Store(&filter)
	return newLogger(writer, level, enc, cfg, opts...), nil
}

// ApplyConfig replaces the filter rules of a logger created by NewWithFilter.
// Loggers derived via Named or With follow the change.
func (l *Logger) ApplyConfig(c *Config) error {
	if l.filter == nil {
		return ErrNoFilter
	}
	filter, err := zapfilter.ParseRules(c.Rules())
	if err != nil {
		return err
	}
	l.filter.filter.Store(&filter)
	return nil
}

//nolint:whitespace // editor/linter issue
func newLogger(
	writer io.Writer,
	level Level,
	enc zapcore.Encoder,
	cfg *loggerConfig,
	opts ...Option,
) *Logger {
	if writer == nil {
		panic("the writer is nil")
	}
	atomicLevel := zap.NewAtomicLevelAt(level)
	core := zapcore.NewCore(enc, zapcore.AddSync(writer), atomicLevel)
	if cfg != nil {
		// the filter decides per logger name, so the core has to let everything pass
		atomicLevel.SetLevel(DebugLevel)
		core = zapfilter.NewFilteredCore(core, cfg.match)
	}
	return &Logger{
		l:      zap.New(core, opts...),
		level:  atomicLevel,
		filter: cfg,
	}
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionConfig().EncoderConfig
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func consoleEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentConfig().EncoderConfig
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}
