package logger

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig controls how the log file is rotated.
type RotationConfig struct {
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// New builds a JSON logger writing to stderr, or to a rotated file when
// file is set.
func New(level, file string) (*zap.Logger, error) {
	if file == "" {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
		cfg.EncoderConfig = encoderConfig()
		return cfg.Build()
	}
	return NewWithRotation(level, RotationConfig{Filename: file, Compress: true}), nil
}

func NewWithRotation(level string, rc RotationConfig) *zap.Logger {
	if rc.MaxSize == 0 {
		rc.MaxSize = 100
	}
	if rc.MaxBackups == 0 {
		rc.MaxBackups = 3
	}
	if rc.MaxAge == 0 {
		rc.MaxAge = 28
	}
	sink := &lumberjack.Logger{
		Filename:   rc.Filename,
		MaxSize:    rc.MaxSize,
		MaxBackups: rc.MaxBackups,
		MaxAge:     rc.MaxAge,
		Compress:   rc.Compress,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(sink), zapcore.Lock(os.Stderr)),
		zap.NewAtomicLevelAt(ParseLevel(level)),
	)
	return zap.New(core, zap.AddCaller())
}

// ParseLevel maps a level name to a zap level, defaulting to info for
// anything zap does not recognize.
func ParseLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(t.UTC().Format(time.RFC3339))
	}
	enc.CallerKey = "caller"
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	enc.LevelKey = "level"
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.MessageKey = "message"
	return enc
}
