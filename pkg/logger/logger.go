package logger

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// Config 定義 logger 的輸出設定
type Config struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text", "json", "logfmt"
	Prefix string `yaml:"prefix"`
}

// New 建立以 charmbracelet/log 為 handler 的 slog.Logger
func New(w io.Writer, cfg Config) *slog.Logger {
	formatters := map[string]log.Formatter{
		"json":   log.JSONFormatter,
		"text":   log.TextFormatter,
		"logfmt": log.LogfmtFormatter,
	}
	formatter := log.TextFormatter
	if f, ok := formatters[strings.ToLower(cfg.Format)]; ok {
		formatter = f
	}

	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           parseLevel(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatter,
	})
	return slog.New(handler)
}

// Setup 建立 logger 並設為 slog 預設值
func Setup(w io.Writer, cfg Config) *slog.Logger {
	l := New(w, cfg)
	slog.SetDefault(l)
	return l
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
