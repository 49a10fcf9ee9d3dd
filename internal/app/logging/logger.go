package logging

import (
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Loggers bundles the pipeline logger and the HTTP logger. Both write to
// stdout and, when a log file is configured, to the same rotating file.
type Loggers struct {
	Zap  *zap.Logger
	Slog *slog.Logger

	rotator *lumberjack.Logger
}

// NewRotator returns a size-rotated log file writer
func NewRotator(logPath string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100, // MB
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}
}

// New builds both loggers. An empty logFile logs to stdout only.
func New(development bool, logFile string) (*Loggers, error) {
	l := &Loggers{}
	if logFile != "" {
		l.rotator = NewRotator(logFile)
	}

	zl, err := newZap(development, l.rotator)
	if err != nil {
		return nil, err
	}
	l.Zap = zl

	var w io.Writer = os.Stdout
	if l.rotator != nil {
		w = io.MultiWriter(os.Stdout, l.rotator)
	}
	level := slog.LevelInfo
	if development {
		level = slog.LevelDebug
	}
	l.Slog = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))

	return l, nil
}

// Close flushes the zap logger and closes the rotating file
func (l *Loggers) Close() error {
	_ = l.Zap.Sync()
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// NewLogger creates a new zap logger with appropriate configuration
func NewLogger(development bool) (*zap.Logger, error) {
	return newZap(development, nil)
}

func newZap(development bool, file io.Writer) (*zap.Logger, error) {
	var config zap.Config

	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	if file == nil {
		return logger, nil
	}

	// The file always gets JSON, whatever the console encoding is.
	fileEncoder := zap.NewProductionEncoderConfig()
	fileEncoder.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(fileEncoder),
		zapcore.AddSync(file),
		config.Level,
	)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
