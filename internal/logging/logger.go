package logging

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the sink, level and format of a process logger.
type Config struct {
	Level       string // "debug", "info", "warn", "error"; empty means info
	Development bool
	OutputPaths []string
	// Process, when set, is stamped on every entry as the "process" field.
	Process string
}

// DefaultConfig returns the production configuration: JSON on stderr at info.
func DefaultConfig() Config {
	return Config{Level: "info", OutputPaths: []string{"stderr"}}
}

// New builds a logger from cfg. Production loggers are sampled per second:
// the first 100 identical entries pass, then one in 100.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	paths := cfg.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}

	sink, closeSink, err := zap.Open(paths...)
	if err != nil {
		return nil, fmt.Errorf("open log sink: %w", err)
	}
	errSink, _, err := zap.Open("stderr")
	if err != nil {
		closeSink()
		return nil, fmt.Errorf("open log error sink: %w", err)
	}

	core := zapcore.NewCore(encoder(cfg.Development), sink, zap.NewAtomicLevelAt(level))
	opts := []zap.Option{zap.ErrorOutput(errSink), zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
	}
	if cfg.Process != "" {
		opts = append(opts, zap.Fields(zap.String("process", cfg.Process)))
	}
	return zap.New(core, opts...), nil
}

// NewDefault is New(DefaultConfig()), falling back to a no-op logger.
func NewDefault() *zap.Logger {
	log, err := New(DefaultConfig())
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// Component derives the logger for one part of the runtime: parent named
// name, carrying fields. A nil parent yields a no-op logger.
func Component(parent *zap.Logger, name string, fields ...zap.Field) *zap.Logger {
	if parent == nil {
		return zap.NewNop()
	}
	log := parent.Named(name)
	if len(fields) > 0 {
		log = log.With(fields...)
	}
	return log
}

func parseLevel(level string) (zapcore.Level, error) {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log level %q: %w", level, err)
	}
	return l, nil
}

func encoder(development bool) zapcore.Encoder {
	if development {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(ec)
}
