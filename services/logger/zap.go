package logsvc

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/trezcool/paku/core"
)

// NewZap builds a JSON logger writing to `console` and, when a log path is configured, to a rolling file.
func NewZap(conf *core.Config, console io.Writer) *zap.Logger {
	level := parseLevel(conf.Log.Level)
	enabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= level })

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if console == nil {
		console = os.Stdout
	}
	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(console), enabler)}

	if conf.Log.Path != "" {
		_ = os.MkdirAll(filepath.Dir(conf.Log.Path), 0o755)
		lj := &lumberjack.Logger{
			Filename:   conf.Log.Path,
			MaxSize:    nz(conf.Log.MaxSizeMB, 100), // megabytes
			MaxBackups: nz(conf.Log.MaxBackups, 3),
			MaxAge:     nz(conf.Log.MaxAgeDays, 7), // days
			Compress:   conf.Log.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(lj), enabler))
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if conf.Debug {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...).With(
		zap.String("app", conf.AppName),
		zap.String("env", conf.Env),
	)
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format("2006-01-02 15:04:05.000"))
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil || s == "" {
		return zapcore.InfoLevel
	}
	return lvl
}

func nz(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
