package obslog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 전역 로거. 콘솔+파일 동시 출력 지원.
var (
	globalLogger *zap.Logger = zap.NewNop()
)

// L는 전역 로거를 반환.
func L() *zap.Logger { return globalLogger }

// Named returns the global logger scoped to a component.
func Named(component string) *zap.Logger { return globalLogger.Named(component) }

type Options struct {
	Level   string
	Format  string // legacy | json | console
	Console bool
	File    string // empty disables file output
	Caller  bool
	// Stdout overrides os.Stdout, mostly for tests.
	Stdout io.Writer
}

func OptionsFromEnv() Options {
	opt := Options{
		Level:   getenvDefault("LOG_LEVEL", "info"),
		Format:  getenvDefault("LOG_FORMAT", "legacy"),
		Console: strings.EqualFold(getenvDefault("LOG_TO_CONSOLE", "true"), "true"),
		Caller:  strings.EqualFold(getenvDefault("LOG_CALLER", "false"), "true"),
	}
	if strings.EqualFold(getenvDefault("LOG_TO_FILE", "true"), "true") {
		opt.File = strings.TrimSpace(getenvDefault("LOG_FILE", filepath.Join("logs", "narrator.log")))
	}
	return opt
}

// InitFromEnv는 환경설정으로 전역 zap 로거를 초기화.
func InitFromEnv() error {
	logger, err := New(OptionsFromEnv())
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// New builds a logger without touching the global one.
func New(opt Options) (*zap.Logger, error) {
	level := parseLevel(opt.Level)
	format := strings.ToLower(strings.TrimSpace(opt.Format))
	if format != "legacy" && format != "json" && format != "console" {
		format = "legacy"
	}
	stdout := opt.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	var cores []zapcore.Core
	if opt.Console {
		cores = append(cores, zapcore.NewCore(encoderFor(format), zapcore.AddSync(stdout), level))
	}
	if opt.File != "" {
		if err := ensureDir(filepath.Dir(opt.File)); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(opt.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoderFor(format), zapcore.AddSync(f), level))
	}
	if len(cores) == 0 {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(stdout), level))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if opt.Caller || format == "legacy" {
		logger = logger.WithOptions(zap.AddCaller())
	}
	return logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func encoderFor(format string) zapcore.Encoder {
	switch format {
	case "json":
		return zapcore.NewJSONEncoder(jsonEncoderConfig())
	case "console":
		return zapcore.NewConsoleEncoder(consoleEncoderConfig())
	default:
		return zapcore.NewConsoleEncoder(legacyEncoderConfig())
	}
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// 인코더 설정들
func legacyEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " | "
	return cfg
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}
